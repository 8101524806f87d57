package ui

import (
	"fmt"

	"github.com/BioHazard786/warpmesh/internal/negotiation"
)

// FormatEvent renders ev as one human readable line. name resolves peer ids
// to display names and may return "".
func FormatEvent(ev negotiation.Event, name func(string) string) string {
	label := func(id string) string {
		if n := name(id); n != "" {
			return fmt.Sprintf("%s (%s)", n, truncate(id, 8))
		}
		return truncate(id, 12)
	}

	switch e := ev.(type) {
	case negotiation.Joined:
		return fmt.Sprintf("%s joined room %s as %s", IconRoom, e.RoomID, truncate(e.LocalID, 12))
	case negotiation.Left:
		return fmt.Sprintf("%s left room %s", IconLeave, e.RoomID)
	case negotiation.PeerAdded:
		return fmt.Sprintf("%s %s is here", IconPeer, label(e.PeerID))
	case negotiation.PhaseChanged:
		return fmt.Sprintf("   %s %s → %s", label(e.PeerID), e.From, PhaseStyle(e.To).Render(e.To.String()))
	case negotiation.StreamAdded:
		return fmt.Sprintf("%s %s %s track from %s", IconStream, e.Track.Kind, truncate(e.Track.TrackID, 12), label(e.PeerID))
	case negotiation.PeerRemoved:
		return fmt.Sprintf("%s %s left", IconLeave, label(e.PeerID))
	case negotiation.PeerFailed:
		return ErrorStyle.Render(fmt.Sprintf("%s %s failed: %v", IconError, label(e.PeerID), e.Err))
	}
	return fmt.Sprintf("%T", ev)
}
