package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/gpportal/pkg/binder"
	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// ErrorMapper translates a domain error into an HTTPError. It returns false
// when it does not recognise err.
type ErrorMapper func(err error) (HTTPError, bool)

// NewErrorHandler returns an ErrorHandler that maps err through mappers (the
// first match wins), logs it (warn for 4xx, error for 5xx) and renders the
// JSON error envelope. Binding errors are always mapped to 400 or 415.
func NewErrorHandler(log *slog.Logger, mappers ...ErrorMapper) ErrorHandler {
	if log == nil {
		log = logger.Noop()
	}
	mappers = append(mappers, BindErrors)

	return func(ctx Context, err error) {
		mapped := err
		var httpErr HTTPError
		var fieldErr FieldErrors
		if !errors.As(err, &httpErr) && !errors.As(err, &fieldErr) {
			for _, m := range mappers {
				if he, ok := m(err); ok {
					mapped = he
					break
				}
			}
		}

		resp := JSONError(mapped).(*jsonResponse)

		level := slog.LevelWarn
		if resp.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		r := ctx.Request()
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Error(err),
			logger.RequestID(middleware.GetReqID(r.Context())),
			slog.Int("status", resp.status),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response", logger.Error(renderErr))
		}
	}
}

// BindErrors maps binder failures to client errors.
func BindErrors(err error) (HTTPError, bool) {
	switch {
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return ErrUnsupportedMediaType, true
	case errors.Is(err, binder.ErrBodyTooLarge):
		return HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"}, true
	case errors.Is(err, binder.ErrInvalidJSON),
		errors.Is(err, binder.ErrInvalidForm),
		errors.Is(err, binder.ErrInvalidQuery),
		errors.Is(err, binder.ErrInvalidPath):
		return ErrBadRequest.WithMessage(err.Error()), true
	}
	return HTTPError{}, false
}
