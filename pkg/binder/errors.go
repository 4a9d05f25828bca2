package binder

import "errors"

var (
	ErrUnsupportedMediaType = errors.New("binder.unsupported_media_type")
	ErrMissingContentType   = errors.New("binder.missing_content_type")
	ErrFailedToParseJSON    = errors.New("binder.invalid_json")
	ErrBodyTooLarge         = errors.New("binder.body_too_large")
)
