package service

import "errors"

// Every error below is shown to the operator as-is; none is fatal to the
// process and none is retried automatically.
var (
	ErrInvalidAmount        = errors.New("opening balance must not be negative")
	ErrSessionAlreadyActive = errors.New("operator already has an active cash session")
	ErrSessionNotFound      = errors.New("cash session not found")
	ErrSessionAlreadyClosed = errors.New("cash session is already closed")
	ErrPersistence          = errors.New("could not persist cash records")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
