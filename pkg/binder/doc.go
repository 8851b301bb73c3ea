// Package binder fills request structs from HTTP requests.
//
// Each binder handles one source and only touches fields tagged for it:
// JSON decodes the body strictly, Path reads `path:"..."` router
// parameters, Query reads `query:"..."` and Form reads `form:"..."`.
// Fields implementing encoding.TextUnmarshaler, such as uuid.UUID, are
// decoded through it.
//
//	type cancelRequest struct {
//		ID uuid.UUID `path:"id"`
//	}
//
//	r.Post("/admin/subscriptions/{id}/cancel", handler.Wrap(cancel,
//		handler.WithBinders[cancelRequest](binder.Path(chi.URLParam)),
//	))
package binder
