package service

import "errors"

// Sentinel error kinds shared across services. Handlers map these onto HTTP
// status codes with errors.Is. Ownership failures surface as ErrNotFound so a
// caller cannot distinguish "someone else's post" from "no such post".
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation failed")
	ErrExternalService = errors.New("external service failure")
)
