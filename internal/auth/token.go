package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// generateToken mints a fresh opaque session token. Tokens carry no
// structure; only their digest is ever stored.
func generateToken() string {
	return uuid.New().String()
}

func hashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

func digestsEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Service issues and validates session tokens. Each username has exactly one
// live token; issuing a new one silently invalidates the previous.
type Service struct {
	store TokenStore
}

func NewService(store TokenStore) *Service {
	return &Service{store: store}
}

// Issue mints a new token for the username and persists its digest,
// replacing whatever token was live before.
func (s *Service) Issue(ctx context.Context, username string) (string, error) {
	token := generateToken()
	if err := s.store.Save(ctx, username, hashToken(token)); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	return token, nil
}

// Validate reports whether token is the live token for username. A false
// result with a nil error is an authorization negative; a non-nil error is a
// store fault and must be mapped to an internal error, never to unauthorized.
func (s *Service) Validate(ctx context.Context, token, username string) (bool, error) {
	stored, err := s.store.Get(ctx, username)
	if err != nil {
		return false, fmt.Errorf("load token: %w", err)
	}
	if stored == "" || token == "" {
		return false, nil
	}
	return digestsEqual(hashToken(token), stored), nil
}
