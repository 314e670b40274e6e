package gateway

// Custom WebSocket close codes used by the gateway protocol. Standard codes (1000, 1001) are defined by RFC 6455; the
// 4000 range is reserved for application use. Resume/sequence codes from the teacher's protocol are dropped: this
// protocol has no resume semantics.
const (
	CloseUnknownError     = 4000
	CloseNotAuthenticated = 4003
	CloseAuthFailed       = 4004
	CloseRateLimited      = 4008
	CloseSessionTimedOut  = 4009
)
