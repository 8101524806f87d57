package negotiation

// Event is published on Coordinator.Events. Like signaling events the set is
// closed and consumers switch on the concrete type.
type Event interface {
	isEvent()
}

// Joined is published once the join request has been sent.
type Joined struct {
	RoomID  string
	LocalID string
}

// Left is published after Leave tore the room down locally.
type Left struct {
	RoomID string
}

type PeerAdded struct {
	PeerID string
}

type PhaseChanged struct {
	PeerID string
	From   Phase
	To     Phase
}

// StreamAdded is published for every remote track.
type StreamAdded struct {
	PeerID string
	Track  Track
}

// PeerRemoved is published when a session is torn down normally.
type PeerRemoved struct {
	PeerID string
}

// PeerFailed is published when a session is torn down because of Err.
type PeerFailed struct {
	PeerID string
	Err    error
}

func (Joined) isEvent()       {}
func (Left) isEvent()         {}
func (PeerAdded) isEvent()    {}
func (PhaseChanged) isEvent() {}
func (StreamAdded) isEvent()  {}
func (PeerRemoved) isEvent()  {}
func (PeerFailed) isEvent()   {}
