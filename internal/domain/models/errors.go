package models

import "errors"

var (
	ErrInvalidInputShape    = errors.New("invalid input shape")
	ErrMalformedPayload     = errors.New("malformed payload")
	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrInvalidSettings      = errors.New("invalid settings")
	ErrNotConnected         = errors.New("not connected")
)
