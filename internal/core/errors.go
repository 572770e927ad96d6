package core

import "errors"

// Error taxonomy shared across stores and the reconciling service.
//
// ErrRemoteUnavailable marks transient infrastructure failures: the service
// absorbs it by falling back to the local cache. ErrNotFound and
// ErrInvalidExtraction indicate the data itself is missing or bad and are
// surfaced to the caller.
var (
	ErrNotFound          = errors.New("receipt not found")
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrInvalidExtraction = errors.New("invalid extraction payload")
)
