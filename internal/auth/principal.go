package auth

import "time"

// Principal is the authenticated actor derived from a verified credential.
// It lives for exactly one request and is rebuilt from the token every time;
// no authorization state is cached across requests.
type Principal struct {
	UserID    string
	TenantID  string
	Admin     bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}
