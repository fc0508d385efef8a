package cart

import "github.com/google/uuid"

// SessionIdentity is either Anonymous or Authenticated(userID).
// The zero value is Anonymous.
type SessionIdentity struct {
	userID        uuid.UUID
	authenticated bool
}

// Anonymous returns the identity of a session with no signed-in user
func Anonymous() SessionIdentity {
	return SessionIdentity{}
}

// Authenticated returns the identity of a session bound to userID
func Authenticated(userID uuid.UUID) SessionIdentity {
	return SessionIdentity{userID: userID, authenticated: true}
}

// IsAuthenticated reports whether the session is bound to a user
func (i SessionIdentity) IsAuthenticated() bool {
	return i.authenticated
}

// UserID returns the bound user id and whether the session is authenticated
func (i SessionIdentity) UserID() (uuid.UUID, bool) {
	return i.userID, i.authenticated
}

// Equal reports whether both identities name the same session state
func (i SessionIdentity) Equal(other SessionIdentity) bool {
	return i.authenticated == other.authenticated && i.userID == other.userID
}

func (i SessionIdentity) String() string {
	if !i.authenticated {
		return "anonymous"
	}
	return "authenticated:" + i.userID.String()
}
