// Package chain defines the JSON shapes delivered by the block observer stream.
package chain

import "errors"

var (
	// ErrDecodeBlock indicates that a frame could not be decoded as a block notification.
	ErrDecodeBlock = errors.New("failed to decode block notification")
	// ErrInvalidBase64 indicates a base64 attribute that could not be decoded.
	ErrInvalidBase64 = errors.New("invalid base64 attribute")
	// ErrInvalidNumber indicates a numeric field that is neither a JSON number nor a numeric string.
	ErrInvalidNumber = errors.New("invalid numeric field")
	// ErrMissingBlock indicates a notification without a block header height.
	ErrMissingBlock = errors.New("block notification without header")
)
