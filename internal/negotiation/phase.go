package negotiation

// Phase is the negotiation phase of one peer session.
type Phase int

const (
	PhaseNew Phase = iota
	// An offer is being created and set as the local description.
	PhaseOfferPending
	// Our offer is applied locally and sent; waiting for the answer.
	PhaseLocalOfferSet
	// The remote offer is applied; an answer is being produced.
	PhaseRemoteOfferApplied
	// The answer is applied locally and being sent.
	PhaseAnswerPending
	PhaseStable
	// The session timed out or its connection failed. Terminal.
	PhaseFailed
	// The session was torn down. Terminal.
	PhaseClosed
)

var phaseNames = [...]string{
	PhaseNew:                "new",
	PhaseOfferPending:       "offer-pending",
	PhaseLocalOfferSet:      "local-offer-set",
	PhaseRemoteOfferApplied: "remote-offer-applied",
	PhaseAnswerPending:      "answer-pending",
	PhaseStable:             "stable",
	PhaseFailed:             "failed",
	PhaseClosed:             "closed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Negotiating reports whether an offer/answer exchange is in flight.
func (p Phase) Negotiating() bool {
	switch p {
	case PhaseOfferPending, PhaseLocalOfferSet, PhaseRemoteOfferApplied, PhaseAnswerPending:
		return true
	}
	return false
}

// Terminal reports whether the session is gone.
func (p Phase) Terminal() bool {
	return p == PhaseFailed || p == PhaseClosed
}
