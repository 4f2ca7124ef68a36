package core

import "errors"

// Shutdown errors
var (
	ErrShutdownInProgress = errors.New("shutdown already in progress")
	ErrShutdownTimeout    = errors.New("shutdown timed out")
	ErrShutdownHooks      = errors.New("shutdown hooks failed")
)
