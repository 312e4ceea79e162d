// Package eventstream ingests block notifications from the observer websocket.
package eventstream

import "errors"

var (
	// ErrNoConnection indicates that there is no active WebSocket connection.
	ErrNoConnection = errors.New("no connection")
	// ErrBinaryFrame indicates the observer sent a binary frame, which the protocol does not use.
	ErrBinaryFrame = errors.New("unexpected binary frame")
	// ErrSocketClosed indicates the observer closed the socket.
	ErrSocketClosed = errors.New("socket closed by peer")
	// ErrNoURL indicates that no observer URL was configured.
	ErrNoURL = errors.New("observer url required")
)
