package audit

import "errors"

var (
	ErrInvalidEvent        = errors.New("audit.invalid_event")
	ErrStorageNotAvailable = errors.New("audit.storage_not_available")
)
