package rtc

import (
	"github.com/vmihailenco/msgpack/v5"
)

const (
	controlLabel     = "control"
	controlChannelID = uint16(0)

	MessageTypeHello = "hello"
)

// Message is a frame on the control data channel.
type Message struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Hello introduces a participant once the control channel opens.
type Hello struct {
	Name    string `msgpack:"name"`
	Version string `msgpack:"version"`
}

// DecodePayload decodes the message payload into v
func (m Message) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}

func newMessage(t string, payload any) (Message, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Payload: b}, nil
}

func encodeMessage(t string, payload any) ([]byte, error) {
	msg, err := newMessage(t, payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

func decodeMessage(data []byte) (Message, error) {
	var msg Message
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}
