package ratelimit

import "time"

// Policy names a windowed request budget. Keys are built
// by callers from the request identity each policy is scoped to (ip+email
// for auth, ip+user_id for WS connect, user_id for WS commands).
type Policy struct {
	Limit  int
	Window time.Duration
}

var (
	// AuthPolicy bounds POST /auth/* attempts per (ip, email).
	AuthPolicy = Policy{Limit: 30, Window: 60 * time.Second}
	// WSConnectPolicy bounds WebSocket connection attempts per (ip, user_id).
	WSConnectPolicy = Policy{Limit: 12, Window: 60 * time.Second}
	// WSCommandPolicy bounds WebSocket commands (every command, fetches
	// included) per user_id.
	WSCommandPolicy = Policy{Limit: 600, Window: 60 * time.Second}
)
