package negotiation

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyBound       = errors.New("connection has already joined a room")
	ErrNotBound           = errors.New("connection has not joined a room")
	ErrNegotiationTimeout = errors.New("negotiation timed out")
	ErrConnectionFailed   = errors.New("peer connection failed")
	ErrRelay              = errors.New("relay error")
	ErrChannelClosed      = errors.New("signaling channel closed")
)

// Error records the negotiation step that failed and the peer it concerned.
type Error struct {
	Op     string
	PeerID string
	Err    error
}

func (e *Error) Error() string {
	if e.PeerID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.PeerID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func newPeerError(op, peerID string, err error) *Error {
	return &Error{Op: op, PeerID: peerID, Err: err}
}
