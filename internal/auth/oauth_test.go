package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/logo-objects/internal/constants"
	"github.com/fivetwenty-io/logo-objects/pkg/logo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestOAuth2TokenManager_GetToken(t *testing.T) {
	t.Run("returns existing valid token", func(t *testing.T) {
		manager := NewOAuth2TokenManager(&OAuth2Config{
			AccessToken: "existing-token",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "existing-token", token)
	})

	t.Run("refreshes expired token using refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
			assert.Equal(t, "old-refresh-token", r.Form.Get("refresh_token"))

			writeJSON(w, http.StatusOK, Token{
				AccessToken:  "new-access-token",
				RefreshToken: "new-refresh-token",
				ExpiresIn:    3600,
				TokenType:    "bearer",
			})
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/api/v1/token",
			RefreshToken: "old-refresh-token",
		})

		manager.store.Set(&Token{
			AccessToken:  "expired-token",
			RefreshToken: "old-refresh-token",
			ExpiresAt:    time.Now().Add(-1 * time.Hour),
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-access-token", token)
		assert.Equal(t, "new-refresh-token", manager.CurrentToken().RefreshToken)
		assert.True(t, manager.CurrentToken().ExpiresAt.After(time.Now().Add(50*time.Minute)))
	})

	t.Run("uses client credentials when no refresh token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			username, password, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-id", username)
			assert.Equal(t, "client-secret", password)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))

			writeJSON(w, http.StatusOK, Token{
				AccessToken: "client-token",
				ExpiresIn:   3600,
				TokenType:   "bearer",
			})
		}))
		defer server.Close()

		manager := NewLogoTokenManager(server.URL, "client-id", "client-secret")

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "client-token", token)
	})

	t.Run("uses password grant with firm number", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/token", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			err := r.ParseForm()
			require.NoError(t, err)
			assert.Equal(t, "password", r.Form.Get("grant_type"))
			assert.Equal(t, "testuser", r.Form.Get("username"))
			assert.Equal(t, "testpass", r.Form.Get("password"))
			assert.Equal(t, "001", r.Form.Get("firmno"))

			writeJSON(w, http.StatusOK, Token{
				AccessToken:  "password-token",
				RefreshToken: "refresh-token",
				ExpiresIn:    3600,
				TokenType:    "bearer",
			})
		}))
		defer server.Close()

		manager := NewLogoTokenManagerWithPassword(server.URL+"/", "client-id", "client-secret", "testuser", "testpass", "001")

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "password-token", token)
		assert.Equal(t, "refresh-token", manager.CurrentToken().RefreshToken)
	})

	t.Run("falls back to grant when refresh is rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := r.ParseForm()
			require.NoError(t, err)

			if r.Form.Get("grant_type") == "refresh_token" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})

				return
			}

			writeJSON(w, http.StatusOK, Token{AccessToken: "fresh-token", TokenType: "bearer"})
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/token",
			Username:     "user",
			Password:     "pass",
			RefreshToken: "stale-refresh",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("handles token request error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "invalid_client",
				"error_description": "Client authentication failed",
			})
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/token",
			ClientID:     "bad-client",
			ClientSecret: "bad-secret",
		})

		token, err := manager.GetToken(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid_client")
		assert.Contains(t, err.Error(), "Client authentication failed")
		assert.Equal(t, http.StatusUnauthorized, logo.StatusCode(err))
		assert.True(t, logo.IsUnauthorized(err))
		assert.Empty(t, token)
	})

	t.Run("no credentials available", func(t *testing.T) {
		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL: "http://example.com/token",
		})

		token, err := manager.GetToken(context.Background())
		require.ErrorIs(t, err, constants.ErrNoCredentials)
		assert.Empty(t, token)
	})

	t.Run("concurrent callers share one token request", func(t *testing.T) {
		var requests atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			time.Sleep(20 * time.Millisecond)
			writeJSON(w, http.StatusOK, Token{AccessToken: "shared", ExpiresIn: 3600, TokenType: "bearer"})
		}))
		defer server.Close()

		manager := NewLogoTokenManager(server.URL, "id", "secret")

		done := make(chan string, 10)

		for range 10 {
			go func() {
				token, _ := manager.GetToken(context.Background())
				done <- token
			}()
		}

		for range 10 {
			assert.Equal(t, "shared", <-done)
		}

		assert.Equal(t, int32(1), requests.Load())
	})
}

func TestOAuth2TokenManager_SetToken(t *testing.T) {
	manager := NewOAuth2TokenManager(&OAuth2Config{RefreshToken: "keep-me"})

	expiresAt := time.Now().Add(1 * time.Hour)
	manager.SetToken("manual-token", expiresAt)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manual-token", token)

	storedToken := manager.store.Get()
	assert.Equal(t, "manual-token", storedToken.AccessToken)
	assert.Equal(t, "bearer", storedToken.TokenType)
	assert.Equal(t, "keep-me", storedToken.RefreshToken)
	assert.Equal(t, expiresAt.Unix(), storedToken.ExpiresAt.Unix())
}

func TestOAuth2TokenManager_RefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Token{
			AccessToken: "refreshed-token",
			ExpiresIn:   3600,
			TokenType:   "bearer",
		})
	}))
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     server.URL + "/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	manager.SetToken("current-token", time.Now().Add(1*time.Hour))

	err := manager.RefreshToken(context.Background())
	require.NoError(t, err)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", token)
}

func TestTokenURL(t *testing.T) {
	assert.Equal(t, "https://erp.example.com/api/v1/token", TokenURL("https://erp.example.com/api/v1"))
	assert.Equal(t, "https://erp.example.com/api/v1/token", TokenURL("https://erp.example.com/api/v1/"))
}

func TestStaticTokenManager(t *testing.T) {
	manager := NewStaticTokenManager("static")

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "static", token)

	require.ErrorIs(t, manager.RefreshToken(context.Background()), constants.ErrStaticTokenNoRefresh)

	manager.SetToken("", time.Time{})

	_, err = manager.GetToken(context.Background())
	require.ErrorIs(t, err, constants.ErrEmptyAccessToken)
}
