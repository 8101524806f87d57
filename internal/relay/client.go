package relay

import (
	"encoding/json"
	"time"

	"github.com/BioHazard786/warpmesh/internal/signaling"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. SDP with many candidates fits.
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Client is one websocket connection to the relay.
type Client struct {
	// ID is the identifier assigned on connect and stamped on everything the client sends.
	ID string

	hub  *Hub
	conn *websocket.Conn

	// roomID is owned by the hub goroutine.
	roomID string

	// send is closed by the hub when the client is dropped.
	send chan *signaling.Message

	log zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	return &Client{
		ID:   id,
		hub:  hub,
		conn: conn,
		send: make(chan *signaling.Message, sendBuffer),
		log:  hub.log.With().Str("client_id", id).Str("remote", conn.RemoteAddr().String()).Logger(),
	}
}

// readPump pumps messages from the websocket connection to the hub.
//
// There is at most one reader per connection; readPump runs in its own goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		var msg signaling.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Debug().Err(err).Msg("Malformed frame")
			c.hub.dispatch(inbound{msg: &signaling.Message{}, client: c})
			continue
		}

		if !c.hub.dispatch(inbound{msg: &msg, client: c}) {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
//
// There is at most one writer per connection; writePump runs in its own goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
