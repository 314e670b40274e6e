package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/eludris-go/eludris/internal/events"
	"github.com/eludris-go/eludris/internal/ratelimit"
	"github.com/eludris-go/eludris/internal/user"
)

// Opcode tags every frame exchanged over the gateway connection. Unlike the teacher's Discord-style protocol there is
// no separate sequence number or resume machinery: the op/d envelope is the teacher's idiom, kept here, carrying the
// much smaller opcode set the original Eludris protocol actually defines.
type Opcode string

const (
	OpHello           Opcode = "HELLO"
	OpPing            Opcode = "PING"
	OpPong            Opcode = "PONG"
	OpRateLimit       Opcode = "RATE_LIMIT"
	OpAuthenticate    Opcode = "AUTHENTICATE"
	OpAuthenticated   Opcode = "AUTHENTICATED"
	OpPresenceUpdate  Opcode = Opcode(events.TypePresenceUpdate)
	OpUserUpdate      Opcode = Opcode(events.TypeUserUpdate)
	OpMessageCreate   Opcode = Opcode(events.TypeMessageCreate)
)

// Frame is the wire-format envelope for every WebSocket message, client- or server-sent.
type Frame struct {
	Op   Opcode          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
}

// decodeFrame parses an inbound client message into its envelope.
func decodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// authenticatePayload is the body of a client AUTHENTICATE frame.
type authenticatePayload struct {
	Token string `json:"token"`
}

// helloData is the body of the server HELLO frame, matching the original's ServerPayload::Hello shape: a heartbeat
// interval, a copy of the instance's info (built and owned by the caller, since its full shape belongs to the REST
// instance-info route rather than the gateway), and the rate limit policy that applies to this connection.
type helloData struct {
	HeartbeatIntervalMS int64            `json:"heartbeat_interval"`
	InstanceInfo        json.RawMessage  `json:"instance_info"`
	RateLimit           gatewayRateLimit `json:"rate_limit"`
}

// gatewayRateLimit mirrors the original's RateLimitConf shape ({reset_after, limit}), the specific rate limit policy
// this connection is governed by.
type gatewayRateLimit struct {
	ResetAfter int64 `json:"reset_after"`
	Limit      int64 `json:"limit"`
}

func newGatewayRateLimit(b ratelimit.Bucket) gatewayRateLimit {
	return gatewayRateLimit{ResetAfter: int64(b.ResetAfter.Seconds()), Limit: b.Limit}
}

func helloFrame(heartbeatMS int64, instanceInfo json.RawMessage, bucket ratelimit.Bucket) ([]byte, error) {
	data, err := json.Marshal(helloData{HeartbeatIntervalMS: heartbeatMS, InstanceInfo: instanceInfo, RateLimit: newGatewayRateLimit(bucket)})
	if err != nil {
		return nil, fmt.Errorf("marshal hello data: %w", err)
	}
	return json.Marshal(Frame{Op: OpHello, Data: data})
}

func pongFrame() ([]byte, error) {
	return json.Marshal(Frame{Op: OpPong})
}

// rateLimitWait mirrors the original's RateLimit { wait } payload, wait given in milliseconds.
type rateLimitWait struct {
	Wait int64 `json:"wait"`
}

func rateLimitFrame(waitMS int64) ([]byte, error) {
	data, err := json.Marshal(rateLimitWait{Wait: waitMS})
	if err != nil {
		return nil, fmt.Errorf("marshal rate limit data: %w", err)
	}
	return json.Marshal(Frame{Op: OpRateLimit, Data: data})
}

// authenticatedData is the body of the server AUTHENTICATED frame: the connecting user's own (unmasked) profile, and
// every other currently-online, non-offline user, exactly as the original assembles it.
type authenticatedData struct {
	User  user.PublicUser   `json:"user"`
	Users []user.PublicUser `json:"users"`
}

func authenticatedFrame(self user.PublicUser, others []user.PublicUser) ([]byte, error) {
	data, err := json.Marshal(authenticatedData{User: self, Users: others})
	if err != nil {
		return nil, fmt.Errorf("marshal authenticated data: %w", err)
	}
	return json.Marshal(Frame{Op: OpAuthenticated, Data: data})
}

func presenceUpdateFrame(p events.PresenceUpdate) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal presence update: %w", err)
	}
	return json.Marshal(Frame{Op: OpPresenceUpdate, Data: data})
}

func userUpdateFrame(u user.PublicUser) ([]byte, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal user update: %w", err)
	}
	return json.Marshal(Frame{Op: OpUserUpdate, Data: data})
}

// dispatchFrame re-wraps an event bus envelope's raw payload under its own opcode, used for events the gateway
// forwards verbatim (e.g. MESSAGE_CREATE) rather than rewriting per-recipient.
func dispatchFrame(op Opcode, payload json.RawMessage) ([]byte, error) {
	return json.Marshal(Frame{Op: op, Data: payload})
}

// maskUserUpdateForOthers applies the original's USER_UPDATE masking rule for recipients who are not the updated
// user themselves: email and verified are never visible, and the free-text status line is cleared once the user is
// offline.
func maskUserUpdateForOthers(u user.PublicUser) user.PublicUser {
	u.Email = nil
	u.Verified = nil
	if u.Status.Type == user.StatusOffline {
		u.Status.Text = nil
	}
	return u
}
