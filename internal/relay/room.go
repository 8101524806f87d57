package relay

import (
	"sort"
	"time"
)

// Room is a live set of clients sharing a relay session. It has no persistence and
// disappears once it stays empty past the reservation window.
type Room struct {
	ID      string
	Members map[string]*Client

	// emptySince is set while the room has no members.
	emptySince time.Time
}

func newRoom(id string, now time.Time) *Room {
	return &Room{
		ID:         id,
		Members:    make(map[string]*Client),
		emptySince: now,
	}
}

func (r *Room) add(c *Client) {
	r.Members[c.ID] = c
	r.emptySince = time.Time{}
}

func (r *Room) remove(c *Client, now time.Time) {
	delete(r.Members, c.ID)
	if len(r.Members) == 0 {
		r.emptySince = now
	}
}

func (r *Room) empty() bool {
	return len(r.Members) == 0
}

// RoomStats is the public view of a room served on /rooms.
type RoomStats struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

func (r *Room) stats() RoomStats {
	members := make([]string, 0, len(r.Members))
	for id := range r.Members {
		members = append(members, id)
	}
	sort.Strings(members)
	return RoomStats{ID: r.ID, Members: members}
}
