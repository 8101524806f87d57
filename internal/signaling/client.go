package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/BioHazard786/warpmesh/internal/dns"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	handshakeTimeout = 10 * time.Second
)

// Client is the websocket connection to the signaling relay. It implements the
// channel contract used by the negotiation coordinator.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	localID   string
	handler   *Handler

	incoming chan *Message
	outgoing chan *Message
	done     chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// NewClient creates a new signaling client. Call Connect before use.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		handler:   NewHandler(),
		incoming:  make(chan *Message, 16),
		outgoing:  make(chan *Message, 16),
		done:      make(chan struct{}),
	}
}

// Dial creates a client and connects it.
func Dial(ctx context.Context, serverURL string) (*Client, error) {
	c := NewClient(serverURL)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect establishes the websocket and waits for the relay to assign the local id.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	resolver := dns.NewResolver()
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ip, err := resolver.Lookup(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)

	if err := c.handshake(ctx); err != nil {
		c.conn.Close()
		return err
	}

	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()
	go c.handler.Start(c.incoming, c.cause)

	return nil
}

// handshake reads the relay's connect frame.
func (c *Client) handshake(ctx context.Context) error {
	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetReadDeadline(deadline)

	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return ErrHandshakeTimeout
		}
		return fmt.Errorf("read connect frame: %w", err)
	}

	ev, err := Decode(&msg)
	if err != nil {
		return err
	}
	connected, ok := ev.(Connected)
	if !ok || connected.LocalID == "" {
		return fmt.Errorf("%w: expected %s, got %s", ErrMalformedMessage, MessageTypeConnect, msg.Type)
	}
	c.localID = connected.LocalID
	slog.Debug("signaling connected", "id", c.localID, "url", c.serverURL)
	return nil
}

// readPump reads frames and queues them for the handler. Malformed frames are
// reported as channel errors without dropping the connection.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				c.setErr(err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.incoming <- unreadableMessage(fmt.Errorf("%w: %v", ErrMalformedMessage, err))
			continue
		}
		c.incoming <- &msg
	}
}

// writePump writes messages to the websocket and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.setErr(err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.setErr(err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

func (c *Client) cause() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// LocalID returns the identifier assigned by the relay. It is empty before Connect.
func (c *Client) LocalID() string {
	return c.localID
}

// Subscribe binds a new listener to the channel.
func (c *Client) Subscribe() *Subscription {
	return c.handler.Subscribe()
}

// Emit sends a message decorated with the local identifier.
func (c *Client) Emit(ctx context.Context, msgType string, data any) error {
	return c.EmitTo(ctx, "", msgType, data)
}

// EmitTo sends a message addressed to receiverID.
func (c *Client) EmitTo(ctx context.Context, receiverID, msgType string, data any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	msg, err := NewMessage(msgType, data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	msg.SenderID = c.localID
	msg.ReceiverID = receiverID
	return c.send(ctx, msg)
}

func (c *Client) send(ctx context.Context, msg *Message) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- msg:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the websocket connection. Subscribers observe a Disconnected event
// with a nil error.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
