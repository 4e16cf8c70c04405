package auth

import "sync/atomic"

// Context mirrors the data model's UserContext: who is on the other end of
// a connection and whether they've authenticated (§3 "User / Session").
type Context struct {
	ClientID      uint32
	UserID        uint32
	HasUser       bool
	Authenticated bool
	AuthDisabled  bool
}

// Login attaches an authenticated user to the context.
func (c *Context) Login(userID uint32) {
	c.UserID = userID
	c.HasUser = true
	c.Authenticated = true
}

// Logout clears the authenticated user, keeping the connection's client id.
func (c *Context) Logout() {
	c.UserID = 0
	c.HasUser = false
	c.Authenticated = c.AuthDisabled
}

var nextClientID uint32

// NewClientID hands out a process-unique connection id, independent of the
// user store's own id sequence.
func NewClientID() uint32 {
	return atomic.AddUint32(&nextClientID, 1)
}

// NewContext builds a fresh, unauthenticated context for a connection,
// already authenticated when auth is disabled entirely.
func NewContext(clientID uint32, authDisabled bool) *Context {
	return &Context{ClientID: clientID, AuthDisabled: authDisabled, Authenticated: authDisabled}
}
