// Package auth checks the shared catalog password.
//
// The server holds a single secret, either in plain text or as a bcrypt
// hash. There are no sessions: every check is a stateless comparison.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotConfigured is returned by Check when no secret is set.
var ErrNotConfigured = errors.New("auth: password not configured")

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Gate verifies candidate passwords against the configured secret.
//
// With a bcrypt secret, the SHA-256 digest of the last accepted candidate is
// kept and matched in constant time before falling back to bcrypt.
type Gate struct {
	secret  string
	hashed  bool
	compare func(hash, password []byte) error

	mu       sync.Mutex
	accepted [sha256.Size]byte
	cached   bool
}

// NewGate creates a gate for secret. A secret with a bcrypt prefix is
// treated as a hash.
func NewGate(secret string) *Gate {
	g := &Gate{secret: secret, compare: bcrypt.CompareHashAndPassword}
	for _, p := range bcryptPrefixes {
		if strings.HasPrefix(secret, p) {
			g.hashed = true
			break
		}
	}
	return g
}

// Configured reports whether a secret is set.
func (g *Gate) Configured() bool {
	return g != nil && g.secret != ""
}

// Check reports whether candidate matches the secret. It returns
// ErrNotConfigured when the gate has no secret.
func (g *Gate) Check(candidate string) (bool, error) {
	if !g.Configured() {
		return false, ErrNotConfigured
	}
	if g.hashed {
		return g.checkHashed(candidate)
	}
	return subtle.ConstantTimeCompare([]byte(g.secret), []byte(candidate)) == 1, nil
}

func (g *Gate) checkHashed(candidate string) (bool, error) {
	sum := sha256.Sum256([]byte(candidate))

	g.mu.Lock()
	hit := g.cached && subtle.ConstantTimeCompare(sum[:], g.accepted[:]) == 1
	g.mu.Unlock()
	if hit {
		return true, nil
	}

	err := g.compare([]byte(g.secret), []byte(candidate))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	g.mu.Lock()
	g.accepted, g.cached = sum, true
	g.mu.Unlock()
	return true, nil
}

// Verify reports whether candidate matches. An unconfigured gate rejects
// everything.
func (g *Gate) Verify(candidate string) bool {
	ok, err := g.Check(candidate)
	return err == nil && ok
}

// Hash returns a bcrypt hash of password suitable for the auth.password
// setting.
func Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
