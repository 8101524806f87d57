package ui

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BioHazard786/warpmesh/internal/negotiation"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PeerStats is what the session log remembers about one peer.
type PeerStats struct {
	ID      string
	Name    string
	Joined  time.Time
	Stable  time.Duration
	Streams int
	Outcome string
}

// SessionLog accumulates coordinator events for the live view and the final summary.
type SessionLog struct {
	mu      sync.Mutex
	roomID  string
	localID string
	started time.Time
	peers   map[string]*PeerStats
	order   []string
}

func NewSessionLog(now time.Time) *SessionLog {
	return &SessionLog{started: now, peers: make(map[string]*PeerStats)}
}

func (l *SessionLog) peer(id string, at time.Time) *PeerStats {
	p, ok := l.peers[id]
	if !ok {
		p = &PeerStats{ID: id, Joined: at, Outcome: "negotiating"}
		l.peers[id] = p
		l.order = append(l.order, id)
	}
	return p
}

// Record folds ev into the log.
func (l *SessionLog) Record(ev negotiation.Event, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch e := ev.(type) {
	case negotiation.Joined:
		l.roomID, l.localID = e.RoomID, e.LocalID
	case negotiation.PeerAdded:
		p := l.peer(e.PeerID, at)
		// A returning peer starts over.
		p.Joined, p.Stable, p.Outcome = at, 0, "negotiating"
	case negotiation.PhaseChanged:
		p := l.peer(e.PeerID, at)
		if e.To == negotiation.PhaseStable {
			if p.Stable == 0 {
				p.Stable = at.Sub(p.Joined)
			}
			p.Outcome = "connected"
		}
	case negotiation.StreamAdded:
		l.peer(e.PeerID, at).Streams++
	case negotiation.PeerRemoved:
		l.peer(e.PeerID, at).Outcome = "left"
	case negotiation.PeerFailed:
		p := l.peer(e.PeerID, at)
		if errors.Is(e.Err, negotiation.ErrNegotiationTimeout) {
			p.Outcome = "timed out"
		} else {
			p.Outcome = "failed"
		}
	}
}

func (l *SessionLog) SetName(peerID, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peer(peerID, time.Now()).Name = name
}

func (l *SessionLog) Name(peerID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.peers[peerID]; ok {
		return p.Name
	}
	return ""
}

func (l *SessionLog) RoomID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.roomID
}

// Peers returns every peer seen, in arrival order.
func (l *SessionLog) Peers() []PeerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]PeerStats, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.peers[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Joined.Before(out[j].Joined) })
	return out
}

// SummaryView renders the end-of-session table with go-pretty.
func SummaryView(l *SessionLog, ended time.Time) string {
	peers := l.Peers()

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.SetTitle(fmt.Sprintf("Session Summary: %s", l.RoomID()))
	t.AppendHeader(table.Row{"Peer", "Name", "Time to stable", "Streams", "Outcome"})
	connected := 0
	for _, p := range peers {
		stable := "-"
		if p.Stable > 0 {
			stable = p.Stable.Round(time.Millisecond).String()
			connected++
		}
		name := p.Name
		if name == "" {
			name = "-"
		}
		t.AppendRow(table.Row{truncate(p.ID, 12), name, stable, p.Streams, p.Outcome})
	}
	t.AppendFooter(table.Row{"Duration", formatDuration(ended.Sub(l.started)), "Connected", fmt.Sprintf("%d/%d", connected, len(peers)), ""})
	return t.Render()
}

func RenderSummary(l *SessionLog, ended time.Time) {
	fmt.Println()
	fmt.Println(SummaryView(l, ended))
}
