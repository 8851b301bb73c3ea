// Package handler turns typed functions into http.HandlerFuncs.
//
// A HandlerFunc receives a request struct filled by the configured binders
// and returns a Response. Wrap runs binders, decorators and the handler, and
// routes every failure through an ErrorHandler:
//
//	type assignRequest struct {
//		TenantID uuid.UUID `json:"tenant_id"`
//		PlanID   string    `json:"plan_id"`
//	}
//
//	r.Post("/admin/subscriptions", handler.Wrap(assign,
//		handler.WithBinders[assignRequest](binder.JSON()),
//		handler.WithErrorHandler[assignRequest](errorHandler),
//	))
//
// JSON bodies use the {data, meta, error} envelope. HTTPError carries the
// status and a stable error code; NewErrorHandler accepts ErrorMappers that
// translate domain errors into HTTPErrors.
package handler
