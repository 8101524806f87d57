package signaling

import (
	"encoding/json"
	"fmt"
	"sync"
)

const subscriptionBuffer = 64

// Subscription is one listener bound to the channel. Events are delivered in the
// order the relay sent them.
type Subscription struct {
	events chan Event
	done   chan struct{}
	once   sync.Once
	h      *Handler
}

// Events returns the event stream. It is closed when the connection ends.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the listener. Pending events are dropped.
func (s *Subscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.h.remove(s)
	})
}

// Handler decodes incoming messages into events and fans them out to subscriptions.
type Handler struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	finished bool
}

// NewHandler creates a new message handler.
func NewHandler() *Handler {
	return &Handler{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new listener.
func (h *Handler) Subscribe() *Subscription {
	s := &Subscription{
		events: make(chan Event, subscriptionBuffer),
		done:   make(chan struct{}),
		h:      h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		close(s.events)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *Handler) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Dispatch delivers ev to every current subscription. A slow subscription only
// delays delivery; a closed one is skipped.
func (h *Handler) Dispatch(ev Event) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.events <- ev:
		case <-s.done:
		}
	}
}

// Finish closes every subscription's event stream. Dispatch must not be called afterwards.
func (h *Handler) Finish() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.finished {
		return
	}
	h.finished = true
	for s := range h.subs {
		close(s.events)
		delete(h.subs, s)
	}
}

// Start routes messages from incoming until it is closed, then reports the
// disconnect returned by cause and finishes.
func (h *Handler) Start(incoming <-chan *Message, cause func() error) {
	for msg := range incoming {
		ev, err := Decode(msg)
		if err != nil {
			h.Dispatch(ChannelError{Err: err})
			continue
		}
		h.Dispatch(ev)
	}
	h.Dispatch(Disconnected{Err: cause()})
	h.Finish()
}

// Decode turns a wire message into its typed event.
func Decode(msg *Message) (Event, error) {
	if msg.readErr != nil {
		return nil, msg.readErr
	}
	switch msg.Type {
	case MessageTypeConnect:
		var p ConnectPayload
		if err := decodeData(msg, &p); err != nil {
			return nil, err
		}
		return Connected{LocalID: p.ID}, nil

	case MessageTypeRoomCreated:
		var roomID string
		if err := decodeData(msg, &roomID); err != nil {
			return nil, err
		}
		return RoomCreated{RoomID: roomID}, nil

	case MessageTypeClientJoin:
		var peerID string
		if err := decodeData(msg, &peerID); err != nil {
			return nil, err
		}
		return ClientJoin{PeerID: peerID}, nil

	case MessageTypeClientLeave:
		var peerID string
		if err := decodeData(msg, &peerID); err != nil {
			return nil, err
		}
		return ClientLeave{PeerID: peerID}, nil

	case MessageTypeOffer:
		var desc SessionDescription
		if err := decodeSigned(msg, &desc); err != nil {
			return nil, err
		}
		return Offer{SenderID: msg.SenderID, Description: desc}, nil

	case MessageTypeAnswer:
		var desc SessionDescription
		if err := decodeSigned(msg, &desc); err != nil {
			return nil, err
		}
		return Answer{SenderID: msg.SenderID, Description: desc}, nil

	case MessageTypeICECandidate:
		var c Candidate
		if err := decodeSigned(msg, &c); err != nil {
			return nil, err
		}
		return ICECandidate{SenderID: msg.SenderID, Candidate: c}, nil

	case MessageTypeError:
		var p ErrorPayload
		if err := decodeData(msg, &p); err != nil {
			return nil, err
		}
		return RelayError{Message: p.Error}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

func decodeData(msg *Message, v any) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: %s without data", ErrMalformedMessage, msg.Type)
	}
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedMessage, msg.Type, err)
	}
	return nil
}

func decodeSigned(msg *Message, v any) error {
	if msg.SenderID == "" {
		return fmt.Errorf("%w: %s without senderId", ErrMalformedMessage, msg.Type)
	}
	return decodeData(msg, v)
}
