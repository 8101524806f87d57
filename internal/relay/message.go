package relay

import (
	"encoding/json"

	"github.com/BioHazard786/warpmesh/internal/signaling"
)

// inbound is a message read from a client. The client pointer is used by the hub
// and never leaves the process.
type inbound struct {
	msg    *signaling.Message
	client *Client
}

// Error strings returned to clients.
const (
	errRoomNotFound    = "room not found"
	errRoomFull        = "room is full"
	errNotInRoom       = "you must join a room first"
	errPeerNotFound    = "peer not found in room"
	errMissingRoomID   = "room id is required"
	errMissingReceiver = "receiverId is required"
	errUnknownType     = "unknown message type"
	errMalformed       = "malformed message"
)

func errorMessage(text string) *signaling.Message {
	data, _ := json.Marshal(signaling.ErrorPayload{Error: text})
	return &signaling.Message{Type: signaling.MessageTypeError, Data: data}
}

// stringMessage builds a relay notification whose payload is a single string.
func stringMessage(msgType, value string) *signaling.Message {
	data, _ := json.Marshal(value)
	return &signaling.Message{Type: msgType, Data: data}
}

func connectMessage(id string) *signaling.Message {
	data, _ := json.Marshal(signaling.ConnectPayload{ID: id})
	return &signaling.Message{Type: signaling.MessageTypeConnect, Data: data}
}
