package binder

import (
	"fmt"
	"net/http"
)

// Path binds `path:"name"` fields using extractor, usually chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	if extractor == nil {
		panic("binder: path extractor is required")
	}
	return func(r *http.Request, v any) error {
		return bindValues(v, "path", func(name string) []string {
			if s := extractor(r, name); s != "" {
				return []string{s}
			}
			return nil
		}, ErrInvalidPath)
	}
}

// Query binds `query:"name"` fields from the URL query string.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindValues(v, "query", func(name string) []string { return q[name] }, ErrInvalidQuery)
	}
}

// Form binds `form:"name"` fields from an url-encoded or multipart body.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if err := r.ParseMultipartForm(MaxJSONBodySize); err != nil && err != http.ErrNotMultipart {
			return fmt.Errorf("%w: %w", ErrInvalidForm, err)
		}
		return bindValues(v, "form", func(name string) []string { return r.PostForm[name] }, ErrInvalidForm)
	}
}
