package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meetsig/meetsig-server/internal/auth"
	"github.com/meetsig/meetsig-server/internal/config"
	"github.com/meetsig/meetsig-server/internal/core"
	"github.com/meetsig/meetsig-server/internal/log"
	"github.com/meetsig/meetsig-server/internal/meeting"
	"github.com/meetsig/meetsig-server/internal/store"
	"github.com/meetsig/meetsig-server/internal/store/sqlite"
)

type testEnv struct {
	server   *httptest.Server
	store    store.Store
	auth     *auth.Service
	meetings *meeting.Service
}

// startTestServer wires a full server against an in-memory store.
func startTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := log.Nop()
	authService := createTestAuthService(st)
	meetings := meeting.NewService(st, logger)

	hub := core.NewHub(meetings, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, authService, meetings, config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 20,
	}, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{server: ts, store: st, auth: authService, meetings: meetings}
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(st store.Store) *auth.Service {
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	return auth.NewService(st, jwtConfig)
}

// guestToken mints a guest identity and returns its token and user ID.
func guestToken(t *testing.T, env *testEnv) (string, int64) {
	t.Helper()

	token, _, err := env.auth.CreateGuestUser(context.Background())
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}
	claims, err := env.auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate guest token: %v", err)
	}
	return token, claims.UserID
}
