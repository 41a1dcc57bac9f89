package registry

import "errors"

var (
	ErrDuplicateSetName  = errors.New("recommendation set already exists")
	ErrUnknownSetName    = errors.New("recommendation set not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrMalformedDocument = errors.New("malformed document")
	ErrNotSubscribed     = errors.New("tenant not subscribed")
)
