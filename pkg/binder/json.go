package binder

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// MaxJSONBodySize caps request bodies read by JSON.
const MaxJSONBodySize = 1 << 20

// JSON decodes an application/json body into v. Unknown fields and trailing
// data are rejected.
func JSON() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: expected application/json", ErrUnsupportedMediaType)
		}

		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxJSONBodySize))
		dec.DisallowUnknownFields()

		if err := dec.Decode(v); err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.As(err, &tooLarge):
				return ErrBodyTooLarge
			case errors.Is(err, io.EOF):
				return fmt.Errorf("%w: empty body", ErrInvalidJSON)
			default:
				return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
			}
		}

		if dec.More() {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrInvalidJSON)
		}
		return nil
	}
}
