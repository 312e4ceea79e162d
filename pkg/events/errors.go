package events

import "errors"

var (
	// ErrUnknownSeverity indicates a severity name outside the known set.
	ErrUnknownSeverity = errors.New("unknown severity")
	// ErrUnknownKind indicates an event kind outside the known set.
	ErrUnknownKind = errors.New("unknown event kind")
)
