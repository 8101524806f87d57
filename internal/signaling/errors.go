package signaling

import "errors"

var (
	ErrClosed           = errors.New("signaling channel closed")
	ErrNotConnected     = errors.New("signaling channel not connected")
	ErrHandshakeTimeout = errors.New("timeout waiting for relay to assign an id")
	ErrUnknownMessage   = errors.New("unknown message type")
	ErrMalformedMessage = errors.New("malformed message")
)
