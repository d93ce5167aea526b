// Package integration contains integration tests for the chat relay.
//
// These tests verify that multiple components work together correctly by
// testing the complete system behavior with real HTTP servers, WebSocket
// connections, and end-to-end event flows. Integration tests ensure that the
// system works as expected when all components are assembled together.
package integration

import (
	"net/url"
	"sync"
	"testing"

	"github.com/chatconnect/relay/internal/server"
	"github.com/chatconnect/relay/test/testhelpers"
)

var startHubOnce sync.Once

// startRelay starts the shared hub (once per test binary), serves the full
// route set on a test server, and allows its origin. It returns the HTTP
// base URL and the WebSocket endpoint URL.
//
// The hub and its chat state are shared across tests in this package, so
// every test uses its own room and usernames for isolation.
func startRelay(t *testing.T) (baseURL, wsURL string) {
	t.Helper()

	startHubOnce.Do(server.StartHub)

	ts := testhelpers.CreateTestServer(server.SetupRoutes())
	t.Cleanup(ts.Close)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{ts.URL}, cfg.AllowedOrigins...)
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	return ts.URL, u.String()
}
