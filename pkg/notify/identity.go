package notify

import (
	"fmt"
	"strings"
)

// Identity is the canonical, opaque reference to a user. It is supplied by
// the authentication collaborator and never generated here.
//
// Producers are sloppy about representation: the same user arrives as a
// 24-hex ObjectId string, an upper-cased copy of it, or a padded string.
// All equality checks in the core run on the normalized form, so a single
// canonicalization point is the difference between routing a notification
// and silently dropping it.
type Identity string

// String returns the canonical string form.
func (id Identity) String() string { return string(id) }

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool { return id == "" }

// NormalizeIdentity converts a raw recipient reference into its canonical
// Identity form: surrounding whitespace is stripped, and 24-character hex
// ids (stringified ObjectIds) are lower-cased. An empty result is an error.
func NormalizeIdentity(raw string) (Identity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("identity is empty")
	}
	if isHex24(s) {
		s = strings.ToLower(s)
	}
	return Identity(s), nil
}

func isHex24(s string) bool {
	if len(s) != 24 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
