package signaling

// Event is one decoded signaling notification. The set of implementations is closed;
// consumers switch on the concrete type.
type Event interface {
	isEvent()
}

// Connected is delivered once the relay has assigned the local identifier.
type Connected struct {
	LocalID string
}

// Disconnected is delivered when the websocket goes away. Err is nil on a local Close.
type Disconnected struct {
	Err error
}

// ChannelError reports a frame that could not be read or decoded.
type ChannelError struct {
	Err error
}

// RoomCreated answers a create request.
type RoomCreated struct {
	RoomID string
}

// ClientJoin announces a new participant in the room.
type ClientJoin struct {
	PeerID string
}

// ClientLeave announces that a participant left the room or disconnected.
type ClientLeave struct {
	PeerID string
}

// Offer is a session description offered by SenderID.
type Offer struct {
	SenderID    string
	Description SessionDescription
}

// Answer is a session description answering one of our offers.
type Answer struct {
	SenderID    string
	Description SessionDescription
}

// ICECandidate is a remote candidate trickled by SenderID.
type ICECandidate struct {
	SenderID  string
	Candidate Candidate
}

// RelayError is an error reported by the relay, e.g. "room is full".
type RelayError struct {
	Message string
}

func (Connected) isEvent()    {}
func (Disconnected) isEvent() {}
func (ChannelError) isEvent() {}
func (RoomCreated) isEvent()  {}
func (ClientJoin) isEvent()   {}
func (ClientLeave) isEvent()  {}
func (Offer) isEvent()        {}
func (Answer) isEvent()       {}
func (ICECandidate) isEvent() {}
func (RelayError) isEvent()   {}
