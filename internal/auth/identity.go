package auth

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Identity is the resolved requester: an opaque user id plus a guest flag.
// Actual authentication happens upstream; this package only reads its result
// (the X-User-ID header) and falls back to guest identities.
type Identity struct {
	UserID  string
	IsGuest bool
	Minted  bool // a fresh guest id was generated for this request
}

// Resolve determines the requester's identity. Registered users arrive with
// X-User-ID set by the upstream auth layer; returning guests send back the
// X-Guest-ID they were handed; everyone else gets a new guest id, which the
// caller must echo in the response so the client can reuse it.
func Resolve(r *http.Request) Identity {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return Identity{UserID: id}
	}
	if id := strings.TrimSpace(r.Header.Get("X-Guest-ID")); id != "" {
		return Identity{UserID: id, IsGuest: true}
	}
	return Identity{UserID: NewGuestID(), IsGuest: true, Minted: true}
}

// NewGuestID mints a guest identifier of the form guest_<12 hex>.
func NewGuestID() string {
	return "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
