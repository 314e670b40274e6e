package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog"

	"github.com/eludris-go/eludris/internal/user"
)

const (
	// maxMessageSize is the maximum size in bytes of a single inbound WebSocket message.
	maxMessageSize = 4096

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// Client represents a single WebSocket connection. Unlike the teacher's Hub-routed dispatch, each Client
// independently subscribes to the shared event bus and filters what it forwards, mirroring the original's
// per-connection `pubsub.into_on_message()` loop; the Hub here only tracks the connection for counting and shutdown.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	addr string
	send chan []byte
	log  zerolog.Logger

	// done is closed to signal that every goroutine owned by this client should stop. It is never closed more than
	// once; closeSend guards that with closeOnce.
	done      chan struct{}
	closeOnce sync.Once

	// Authentication state, protected by mu. Set once by handleAuthenticate and read by the event-forwarding loop to
	// decide what belongs to "self" versus "others".
	mu            sync.RWMutex
	authenticated bool
	userID        uint64
	status        user.Status

	// rateLimited tracks whether the previous inbound message already tripped the rate limit; a second consecutive
	// violation disconnects the client, matching the original's "already rate_limited -> drop" behaviour.
	rateLimited bool

	pingMu   sync.Mutex
	lastPing time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, addr string, logger zerolog.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		addr:     addr,
		send:     make(chan []byte, 64),
		done:     make(chan struct{}),
		log:      logger,
		lastPing: time.Now(),
	}
}

// touch records that a Ping was just received, resetting the death-detector's clock.
func (c *Client) touch() {
	c.pingMu.Lock()
	c.lastPing = time.Now()
	c.pingMu.Unlock()
}

func (c *Client) sincePing() time.Duration {
	c.pingMu.Lock()
	defer c.pingMu.Unlock()
	return time.Since(c.lastPing)
}

// deathDetector closes the connection if no Ping has arrived within timeoutDuration, matching the original's
// check_connection future. It returns once the connection is judged dead or done is closed.
func (c *Client) deathDetector(timeoutDuration time.Duration) {
	ticker := time.NewTicker(timeoutDuration)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if c.sincePing() > timeoutDuration {
				c.closeSend()
				return
			}
		}
	}
}

// closeSend signals every goroutine owned by this client to stop. Safe to call multiple times or concurrently.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) setAuthenticated(userID uint64, status user.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = true
	c.userID = userID
	c.status = status
}

func (c *Client) setStatus(status user.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *Client) session() (userID uint64, status user.Status, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.status, c.authenticated
}

// enqueue sends a frame to the client's write channel without blocking. If the channel is full or the client is
// already shutting down, the frame is dropped.
func (c *Client) enqueue(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.log.Warn().Str("addr", c.addr).Msg("Client send buffer full, closing connection")
		c.closeSend()
	}
}

// closeWithCode sends a WebSocket close frame with the given code and reason.
func (c *Client) closeWithCode(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// writePump writes frames from the send channel to the WebSocket connection until done is closed, draining whatever
// remains buffered so the client receives it before the connection closes.
func (c *Client) writePump() {
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Msg("WebSocket write error")
				return
			}
		case <-c.done:
			for {
				select {
				case msg := <-c.send:
					_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// readLoop reads and dispatches inbound frames until the connection errors, decodes badly, or is closed. It returns
// a human-readable reason, matching the original's handle_rx future which resolves to a disconnect reason string.
func (c *Client) readLoop() string {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("WebSocket read error")
			}
			return "connection closed"
		}

		// Admission is checked on every inbound message, matching the original's process_rate_limit call. A first
		// violation only warns (the message below still gets processed); a second consecutive violation disconnects.
		if admitted, retryAfterMS := c.hub.admit(c.addr); !admitted {
			if c.rateLimited {
				return "client got rate limited"
			}
			c.rateLimited = true
			if frame, err := rateLimitFrame(retryAfterMS); err == nil {
				c.enqueue(frame)
			}
		} else if c.rateLimited {
			c.rateLimited = false
		}

		frame, err := decodeFrame(message)
		if err != nil {
			c.log.Debug().Err(err).Msg("Unknown gateway payload")
			continue
		}

		switch frame.Op {
		case OpPing:
			c.touch()
			if pong, err := pongFrame(); err == nil {
				c.enqueue(pong)
			}
		case OpAuthenticate:
			if _, _, ok := c.session(); ok {
				continue
			}
			var payload authenticatePayload
			if err := json.Unmarshal(frame.Data, &payload); err != nil {
				c.log.Debug().Err(err).Msg("Invalid authenticate payload")
				continue
			}
			if err := c.hub.handleAuthenticate(c, payload.Token); err != nil {
				return err.Error()
			}
		default:
			c.log.Debug().Str("op", string(frame.Op)).Msg("Unknown gateway payload")
		}
	}
}
