package model

import "errors"

var (
	ErrRetrievalUnavailable  = errors.New("retrieval unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrEntityNotResolved     = errors.New("entity not resolved")
	ErrMalformedQuery        = errors.New("malformed query")
	// ErrIndexCorrupted is the one retrieval failure that aborts a request.
	ErrIndexCorrupted = errors.New("index corrupted")
)
