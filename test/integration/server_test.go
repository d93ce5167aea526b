package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/chatconnect/relay/internal/server"
	"github.com/chatconnect/relay/test/testhelpers"
)

// TestHealthEndpoint verifies the health check payload.
func TestHealthEndpoint(t *testing.T) {
	baseURL, _ := startRelay(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/health")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var health server.HealthResponse
	testhelpers.DecodeJSONBody(t, resp, &health)
	if health.Status != "OK" {
		t.Errorf("Expected status OK, got %q", health.Status)
	}
	if health.Timestamp.IsZero() {
		t.Error("Expected a non-zero timestamp")
	}
}

// TestStatsEndpoint verifies that joined users show up in the aggregate
// statistics with per-room counts.
func TestStatsEndpoint(t *testing.T) {
	baseURL, wsURL := startRelay(t)

	a := testhelpers.ConnectWebSocket(t, wsURL, baseURL)
	testhelpers.JoinRoom(t, a, "stats-alice", "it-stats")
	b := testhelpers.ConnectWebSocket(t, wsURL, baseURL)
	testhelpers.JoinRoom(t, b, "stats-bob", "it-stats")

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/api/stats")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var stats server.StatsResponse
	testhelpers.DecodeJSONBody(t, resp, &stats)
	if stats.TotalUsers < 2 {
		t.Errorf("Expected at least 2 users, got %d", stats.TotalUsers)
	}
	found := false
	for _, room := range stats.Rooms {
		if room.Name == "it-stats" {
			found = true
			if room.UserCount != 2 {
				t.Errorf("Expected 2 users in it-stats, got %d", room.UserCount)
			}
		}
	}
	if !found {
		t.Error("Expected it-stats to appear in room stats")
	}
	if stats.Uptime <= 0 {
		t.Errorf("Expected positive uptime, got %f", stats.Uptime)
	}
}

// TestUsersEndpoint verifies the connection roster listing.
func TestUsersEndpoint(t *testing.T) {
	baseURL, wsURL := startRelay(t)

	conn := testhelpers.ConnectWebSocket(t, wsURL, baseURL)
	testhelpers.JoinRoom(t, conn, "roster-alice", "it-roster")

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/api/users")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var users []server.UserInfo
	testhelpers.DecodeJSONBody(t, resp, &users)
	found := false
	for _, user := range users {
		if user.Username == "roster-alice" {
			found = true
			if user.Room != "it-roster" {
				t.Errorf("Expected roster-alice in it-roster, got %q", user.Room)
			}
			if user.JoinedAt.IsZero() {
				t.Error("Expected a non-zero join time")
			}
		}
	}
	if !found {
		t.Error("Expected roster-alice in the user roster")
	}
}

// TestMessagesEndpoint verifies room history retrieval, including the empty
// array for rooms with no retained messages.
func TestMessagesEndpoint(t *testing.T) {
	baseURL, wsURL := startRelay(t)

	conn := testhelpers.ConnectWebSocket(t, wsURL, baseURL)
	testhelpers.JoinRoom(t, conn, "hist-alice", "it-hist-api")
	testhelpers.SendEvent(t, conn, server.EventMessage, server.MessageRequest{Text: "for the record"})
	testhelpers.WaitForEvent(t, conn, server.EventMessageNew, 2*time.Second)

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/api/messages/it-hist-api")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	var messages []server.Message
	testhelpers.DecodeJSONBody(t, resp, &messages)
	if len(messages) != 1 || messages[0].Text != "for the record" {
		t.Errorf("Expected one retained message, got %v", messages)
	}

	resp = testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/api/messages/it-hist-never-used")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	var empty []server.Message
	testhelpers.DecodeJSONBody(t, resp, &empty)
	if len(empty) != 0 {
		t.Errorf("Expected empty history, got %v", empty)
	}
}

// TestMetricsEndpoint verifies that the Prometheus endpoint serves the chat
// metric families.
func TestMetricsEndpoint(t *testing.T) {
	baseURL, _ := startRelay(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/metrics")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "chat_connections_active") {
		t.Error("Expected chat_connections_active in metrics output")
	}
}

// TestTestPageEndpoint verifies the built-in HTML test page is served.
func TestTestPageEndpoint(t *testing.T) {
	baseURL, _ := startRelay(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, baseURL+"/test")
	testhelpers.AssertStatusCode(t, resp, http.StatusOK)

	if ct := resp.Header.Get("Content-Type"); ct != "text/html" {
		t.Errorf("Expected text/html content type, got %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("Failed to read page body: %v", err)
	}
	if !strings.Contains(string(body), "<html") {
		t.Error("Expected an HTML document")
	}
}
