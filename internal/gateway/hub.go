package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/eludris-go/eludris/internal/auth"
	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/presence"
	"github.com/eludris-go/eludris/internal/ratelimit"
	"github.com/eludris-go/eludris/internal/user"
)

// heartbeatInterval is advertised to clients in the Hello frame; deathTimeout, a bit more than one heartbeat, is how
// long the death detector lets a connection go without a Ping before judging it dead (TIMEOUT / TIMEOUT_DURATION in
// the original).
const (
	heartbeatInterval = 45 * time.Second
	deathTimeout      = 48 * time.Second
)

// Hub is the gateway's connection registry. Unlike the teacher's Hub it does not route events to clients itself:
// every Client independently subscribes to the shared event bus and filters what it forwards, mirroring the
// original's per-connection pubsub loop. The Hub's job is admission (rate limiting, authentication, max connections)
// and bookkeeping (count, graceful shutdown).
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	rdb       *redis.Client
	validator auth.Validator
	users     *user.Service
	presence  *presence.Store
	events    *events.Publisher
	limiter   *ratelimit.Limiter

	instanceInfo json.RawMessage
	maxConns     int
	log          zerolog.Logger
}

// NewHub creates a Hub. instanceInfo is the pre-rendered JSON body of the instance-info response, embedded verbatim
// in every Hello frame; maxConns of 0 means unlimited.
func NewHub(
	rdb *redis.Client,
	validator auth.Validator,
	users *user.Service,
	presenceStore *presence.Store,
	publisher *events.Publisher,
	limiter *ratelimit.Limiter,
	instanceInfo json.RawMessage,
	maxConns int,
	logger zerolog.Logger,
) *Hub {
	return &Hub{
		clients:      make(map[*Client]struct{}),
		rdb:          rdb,
		validator:    validator,
		users:        users,
		presence:     presenceStore,
		events:       publisher,
		limiter:      limiter,
		instanceInfo: instanceInfo,
		maxConns:     maxConns,
		log:          logger.With().Str("component", "gateway").Logger(),
	}
}

// ClientCount returns the number of currently registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// admit checks the pandemonium rate limit bucket for addr, returning whether the message is admitted and, if not,
// how many milliseconds the client should wait before trying again.
func (h *Hub) admit(addr string) (bool, int64) {
	result, err := h.limiter.Admit(context.Background(), ratelimit.BucketPandemonium, addr)
	if err != nil {
		h.log.Warn().Err(err).Msg("Rate limit check failed, admitting by default")
		return true, 0
	}
	return result.Admitted, result.RetryAfterMS
}

// ServeWebSocket runs the full lifecycle of one connection: admission rate limit, Hello, the authenticate-or-ping
// read loop, the event-forwarding loop, and the death detector, raced exactly as the original's tokio::select! races
// handle_rx / handle_events / check_connection. Whichever finishes first triggers teardown of the other two.
func (h *Hub) ServeWebSocket(conn *websocket.Conn, addr string) {
	client := newClient(h, conn, addr, h.log)
	if !h.register(client) {
		client.closeWithCode(CloseUnknownError, "too many connections")
		_ = conn.Close()
		return
	}
	defer h.unregister(client)

	bucket, _ := h.limiter.Bucket(ratelimit.BucketPandemonium)

	if admitted, retryAfterMS := h.admit(addr); !admitted {
		if frame, err := rateLimitFrame(retryAfterMS); err == nil {
			client.enqueue(frame)
		}
		client.rateLimited = true
	}

	hello, err := helloFrame(heartbeatInterval.Milliseconds(), h.instanceInfo, bucket)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build Hello frame")
		_ = conn.Close()
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send Hello frame")
		_ = conn.Close()
		return
	}

	go client.writePump()

	readDone := make(chan string, 1)
	eventsDone := make(chan struct{}, 1)
	deadDone := make(chan struct{}, 1)

	go func() { readDone <- client.readLoop() }()
	go func() { h.forwardEvents(client); close(eventsDone) }()
	go func() { client.deathDetector(deathTimeout); close(deadDone) }()

	var reason string
	code := CloseUnknownError
	select {
	case reason = <-readDone:
		if reason == "client got rate limited" {
			code = CloseRateLimited
		} else if reason == "invalid credentials" || reason == "failed to connect user" {
			code = CloseAuthFailed
		}
	case <-eventsDone:
		reason = "server error"
	case <-deadDone:
		reason = "client connection dead"
		code = CloseSessionTimedOut
	}

	client.closeSend()
	client.closeWithCode(code, reason)
	_ = conn.Close()

	h.disconnect(client)
}

// handleAuthenticate implements the original's Authenticate branch: validate the token, bump the presence counter,
// fetch the user, publish PRESENCE_UPDATE if now visibly online, and reply with the Authenticated frame carrying
// every other online, non-offline user.
func (h *Hub) handleAuthenticate(c *Client, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, _, err := h.validator.ValidateToken(ctx, token)
	if err != nil {
		return errors.New("invalid credentials")
	}

	if _, err := h.presence.Connect(ctx, userID); err != nil {
		h.log.Error().Err(err).Uint64("user_id", userID).Msg("Failed to connect presence")
		return errors.New("failed to connect user")
	}

	self, err := h.users.Get(ctx, userID, &userID, true)
	if err != nil {
		h.log.Error().Err(err).Uint64("user_id", userID).Msg("Failed to get user info")
		return errors.New("failed to connect user")
	}

	if self.Status.Type != user.StatusOffline {
		update := events.PresenceUpdate{UserID: userID, Status: events.Status{Type: string(self.Status.Type), Text: self.Status.Text}}
		if err := h.events.Publish(ctx, events.TypePresenceUpdate, update); err != nil {
			h.log.Error().Err(err).Msg("Failed to publish PRESENCE_UPDATE")
			return errors.New("failed to connect user")
		}
	}

	onlineIDs, err := h.presence.Online(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get online users")
		return errors.New("failed to connect user")
	}

	others := make([]user.PublicUser, 0, len(onlineIDs))
	for _, id := range onlineIDs {
		if id == userID {
			continue
		}
		u, err := h.users.Get(ctx, id, nil, true)
		if err != nil {
			h.log.Error().Err(err).Uint64("user_id", id).Msg("Failed to get online user")
			continue
		}
		if u.Status.Type == user.StatusOffline {
			continue
		}
		others = append(others, u.Public(false))
	}

	frame, err := authenticatedFrame(self.Public(true), others)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build authenticated frame")
		return errors.New("failed to connect user")
	}
	c.enqueue(frame)
	c.setAuthenticated(userID, self.Status)
	return nil
}

// forwardEvents subscribes independently to the shared event bus for the lifetime of the connection, applying the
// self/others masking rules from the original's handle_events future. It returns when done is closed or the
// subscription errors.
func (h *Hub) forwardEvents(c *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	sub := events.Subscribe(ctx, h.rdb)
	defer func() { _ = sub.Close() }()

	for {
		env, err := sub.Next(ctx)
		if err != nil {
			return
		}

		userID, _, authenticated := c.session()
		if !authenticated {
			continue
		}

		switch env.Type {
		case events.TypePresenceUpdate:
			var p events.PresenceUpdate
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				h.log.Warn().Err(err).Msg("Failed to decode PRESENCE_UPDATE event")
				continue
			}
			if p.UserID == userID {
				c.setStatus(user.Status{Type: user.StatusType(p.Status.Type), Text: p.Status.Text})
				continue
			}
			frame, err := presenceUpdateFrame(p)
			if err != nil {
				continue
			}
			c.enqueue(frame)

		case events.TypeUserUpdate:
			var u user.PublicUser
			if err := json.Unmarshal(env.Payload, &u); err != nil {
				h.log.Warn().Err(err).Msg("Failed to decode USER_UPDATE event")
				continue
			}
			if u.ID == userID {
				continue
			}
			frame, err := userUpdateFrame(maskUserUpdateForOthers(u))
			if err != nil {
				continue
			}
			c.enqueue(frame)

		default:
			frame, err := dispatchFrame(Opcode(env.Type), env.Payload)
			if err != nil {
				continue
			}
			c.enqueue(frame)
		}
	}
}

// disconnect mirrors the original's post-select teardown: decrement the presence counter and, if the user's last
// known status was non-offline, publish an offline PRESENCE_UPDATE.
func (h *Hub) disconnect(c *Client) {
	userID, status, authenticated := c.session()
	if !authenticated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.presence.Disconnect(ctx, userID); err != nil {
		h.log.Warn().Err(err).Uint64("user_id", userID).Msg("Failed to decrement presence on disconnect")
	}

	if status.Type != user.StatusOffline {
		offline := events.PresenceUpdate{UserID: userID, Status: events.Status{Type: string(user.StatusOffline)}}
		if err := h.events.Publish(ctx, events.TypePresenceUpdate, offline); err != nil {
			h.log.Warn().Err(err).Uint64("user_id", userID).Msg("Failed to publish offline PRESENCE_UPDATE")
		}
	}
}

// Shutdown closes every registered connection, used during graceful server shutdown.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.closeWithCode(CloseUnknownError, "server shutting down")
		c.closeSend()
	}
}
