package relay

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/rs/zerolog"
)

// Options tunes the hub.
type Options struct {
	// MaxRoomSize caps members per room. Zero means unlimited.
	MaxRoomSize int

	// RoomReservation is how long an empty room (e.g. just created) is kept.
	RoomReservation time.Duration

	// SweepInterval is how often empty rooms are collected.
	SweepInterval time.Duration
}

// DefaultOptions returns the relay defaults.
func DefaultOptions() Options {
	return Options{
		MaxRoomSize:     16,
		RoomReservation: 2 * time.Minute,
		SweepInterval:   30 * time.Second,
	}
}

// Hub is the central brain of the relay. A single goroutine (Run) owns every
// room and client, so no locking is needed on that state.
type Hub struct {
	opts Options
	log  zerolog.Logger

	rooms   map[string]*Room
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	queries    chan chan []RoomStats
	done       chan struct{}

	now func() time.Time
}

// NewHub creates a new Hub instance.
func NewHub(opts Options, log zerolog.Logger) *Hub {
	defaults := DefaultOptions()
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaults.SweepInterval
	}
	if opts.RoomReservation <= 0 {
		opts.RoomReservation = defaults.RoomReservation
	}
	return &Hub{
		opts:       opts,
		log:        log,
		rooms:      make(map[string]*Room),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound),
		queries:    make(chan chan []RoomStats),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) dispatch(in inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

// Rooms returns a snapshot of every live room, sorted by id.
func (h *Hub) Rooms(ctx context.Context) ([]RoomStats, error) {
	reply := make(chan []RoomStats, 1)
	select {
	case h.queries <- reply:
	case <-h.done:
		return nil, context.Canceled
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run processes hub events until ctx is cancelled. Every connected client is
// dropped on exit.
func (h *Hub) Run(ctx context.Context) error {
	sweep := time.NewTicker(h.opts.SweepInterval)
	defer sweep.Stop()

	defer func() {
		close(h.done)
		for _, c := range h.clients {
			h.drop(c)
		}
		h.log.Info().Msg("Hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.clients[client.ID] = client
			client.log.Info().Int("clients", len(h.clients)).Msg("Client registered")
			h.deliver(client, connectMessage(client.ID))

		case client := <-h.unregister:
			if _, ok := h.clients[client.ID]; ok {
				client.log.Info().Msg("Client unregistered")
				h.drop(client)
			}

		case in := <-h.inbound:
			if _, ok := h.clients[in.client.ID]; !ok {
				continue
			}
			h.handle(in.client, in.msg)

		case reply := <-h.queries:
			reply <- h.snapshot()

		case <-sweep.C:
			h.sweepRooms()
		}
	}
}

func (h *Hub) handle(c *Client, msg *signaling.Message) {
	c.log.Debug().Str("type", msg.Type).Str("receiver", msg.ReceiverID).Msg("Message received")

	switch msg.Type {
	case signaling.MessageTypeCreate:
		h.createRoom(c)

	case signaling.MessageTypeJoin:
		var roomID string
		if len(msg.Data) == 0 || json.Unmarshal(msg.Data, &roomID) != nil || roomID == "" {
			h.deliver(c, errorMessage(errMissingRoomID))
			return
		}
		h.joinRoom(c, roomID)

	case signaling.MessageTypeLeave:
		h.leaveRoom(c)

	case signaling.MessageTypeOffer, signaling.MessageTypeAnswer, signaling.MessageTypeICECandidate:
		h.route(c, msg)

	case "":
		h.deliver(c, errorMessage(errMalformed))

	default:
		c.log.Warn().Str("type", msg.Type).Msg("Unknown message type")
		h.deliver(c, errorMessage(errUnknownType))
	}
}

func (h *Hub) createRoom(c *Client) {
	id, err := newRoomID(func(id string) bool {
		_, ok := h.rooms[id]
		return ok
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Room creation failed")
		h.deliver(c, errorMessage(err.Error()))
		return
	}

	h.rooms[id] = newRoom(id, h.now())
	c.log.Info().Str("room_id", id).Msg("Room created")
	h.deliver(c, stringMessage(signaling.MessageTypeRoomCreated, id))
}

func (h *Hub) joinRoom(c *Client, roomID string) {
	if c.roomID == roomID {
		return
	}
	if c.roomID != "" {
		h.leaveRoom(c)
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = newRoom(roomID, h.now())
		h.rooms[roomID] = room
	}

	if h.opts.MaxRoomSize > 0 && len(room.Members) >= h.opts.MaxRoomSize {
		c.log.Info().Str("room_id", roomID).Msg("Room join failed: room is full")
		h.deliver(c, errorMessage(errRoomFull))
		return
	}

	for _, member := range room.Members {
		h.deliver(member, stringMessage(signaling.MessageTypeClientJoin, c.ID))
	}
	// Dropping the last stale member deletes the room; the joiner keeps it alive.
	if h.rooms[roomID] != room {
		h.rooms[roomID] = room
	}
	room.add(c)
	c.roomID = roomID

	c.log.Info().Str("room_id", roomID).Int("members", len(room.Members)).Msg("Client joined room")
}

func (h *Hub) leaveRoom(c *Client) {
	if c.roomID == "" {
		return
	}
	room, ok := h.rooms[c.roomID]
	c.roomID = ""
	if !ok {
		return
	}

	room.remove(c, h.now())
	for _, member := range room.Members {
		h.deliver(member, stringMessage(signaling.MessageTypeClientLeave, c.ID))
	}

	c.log.Info().Str("room_id", room.ID).Int("members", len(room.Members)).Msg("Client left room")
	if room.empty() {
		delete(h.rooms, room.ID)
		h.log.Info().Str("room_id", room.ID).Msg("Room deleted")
	}
}

// route relays a directed negotiation message to a member of the sender's room.
func (h *Hub) route(c *Client, msg *signaling.Message) {
	if c.roomID == "" {
		h.deliver(c, errorMessage(errNotInRoom))
		return
	}
	room, ok := h.rooms[c.roomID]
	if !ok {
		h.deliver(c, errorMessage(errRoomNotFound))
		return
	}
	if msg.ReceiverID == "" {
		h.deliver(c, errorMessage(errMissingReceiver))
		return
	}
	target, ok := room.Members[msg.ReceiverID]
	if !ok {
		c.log.Debug().Str("receiver", msg.ReceiverID).Msg("Relay failed: receiver not in room")
		h.deliver(c, errorMessage(errPeerNotFound))
		return
	}

	forward := *msg
	forward.SenderID = c.ID
	h.deliver(target, &forward)
}

// deliver queues msg for c without blocking the hub. A client whose buffer is
// full is considered dead and dropped.
func (h *Hub) deliver(c *Client, msg *signaling.Message) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.log.Warn().Str("type", msg.Type).Msg("Send buffer full, dropping client")
		h.drop(c)
	}
}

// drop removes c from its room and from the hub and closes its send channel.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	h.leaveRoom(c)
	close(c.send)
}

func (h *Hub) sweepRooms() {
	cutoff := h.now().Add(-h.opts.RoomReservation)
	for id, room := range h.rooms {
		if room.empty() && room.emptySince.Before(cutoff) {
			delete(h.rooms, id)
			h.log.Info().Str("room_id", id).Msg("Reserved room expired")
		}
	}
}

func (h *Hub) snapshot() []RoomStats {
	stats := make([]RoomStats, 0, len(h.rooms))
	for _, room := range h.rooms {
		stats = append(stats, room.stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}
