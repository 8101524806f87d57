package signaling

import "encoding/json"

// Message represents every websocket frame exchanged between a peer and the relay.
type Message struct {
	Type       string          `json:"type"`
	SenderID   string          `json:"senderId,omitempty"`
	ReceiverID string          `json:"receiverId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`

	// readErr marks a frame that could not be parsed. It travels the same
	// queue as good frames so subscribers see errors in arrival order.
	readErr error
}

func unreadableMessage(err error) *Message {
	return &Message{readErr: err}
}

// Message type constants.
const (
	// Sent by the relay as the first frame of every connection.
	MessageTypeConnect = "connect"

	MessageTypeCreate = "create"
	MessageTypeJoin   = "join"
	MessageTypeLeave  = "leave"

	MessageTypeRoomCreated = "roomCreated"
	MessageTypeClientJoin  = "client-join"
	MessageTypeClientLeave = "client-leave"
	MessageTypeError       = "error"

	MessageTypeOffer        = "offer"
	MessageTypeAnswer       = "answer"
	MessageTypeICECandidate = "icecandidate"
)

// ConnectPayload carries the identifier assigned by the relay.
type ConnectPayload struct {
	ID string `json:"id"`
}

// ErrorPayload represents error messages from the relay.
type ErrorPayload struct {
	Error string `json:"error"`
}

// SessionDescription mirrors RTCSessionDescriptionInit on the wire.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp,omitempty"`
}

// Description types.
const (
	SDPTypeOffer    = "offer"
	SDPTypeAnswer   = "answer"
	SDPTypeRollback = "rollback"
)

// Candidate mirrors RTCIceCandidateInit on the wire.
type Candidate struct {
	Candidate        string  `json:"candidate"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment *string `json:"usernameFragment,omitempty"`
}

// NewMessage builds a message, encoding data as the payload when it is not nil.
func NewMessage(msgType string, data any) (*Message, error) {
	msg := &Message{Type: msgType}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	msg.Data = raw
	return msg, nil
}
