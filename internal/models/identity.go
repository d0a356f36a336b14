package models

// Identity is the caller as resolved by the gateway: the signed-in user and the client
// session the request belongs to. UserID is empty for anonymous callers.
type Identity struct {
	UserID    string
	SessionID string
}

// Authenticated reports whether the identity carries a user
func (i Identity) Authenticated() bool {
	return i.UserID != ""
}
