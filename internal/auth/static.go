package auth

import (
	"context"
	"sync"
	"time"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
)

// StaticTokenManager serves a fixed bearer token.
type StaticTokenManager struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenManager creates a manager for token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the token.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.token == "" {
		return "", constants.ErrEmptyAccessToken
	}

	return m.token, nil
}

// RefreshToken always fails.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return constants.ErrStaticTokenNoRefresh
}

// SetToken replaces the token. The expiry is ignored.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
}
