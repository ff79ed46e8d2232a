// Package helpers provides shared fixtures and fakes for the
// integration and end-to-end tests: standings payload builders, a mock
// standings server and small wait/env utilities.
package helpers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// StandingsEntry builds one team's table entry in the shape the
// standings endpoints serve. Points are derived as 3*wins + draws.
func StandingsEntry(team string, rank, played, wins, draws, losses, goalsFor, goalsAgainst int, note string) map[string]any {
	entry := map[string]any{
		"team": map[string]any{"displayName": team},
		"stats": []map[string]any{
			stat("rank", rank),
			stat("gamesPlayed", played),
			stat("wins", wins),
			stat("ties", draws),
			stat("losses", losses),
			stat("pointsFor", goalsFor),
			stat("pointsAgainst", goalsAgainst),
			stat("pointDifferential", goalsFor-goalsAgainst),
			stat("points", wins*3+draws),
		},
	}
	if note != "" {
		entry["note"] = map[string]any{"description": note}
	}
	return entry
}

func stat(name string, value int) map[string]any {
	return map[string]any{"name": name, "value": float64(value)}
}

// StandingsPayload builds a full standings response for one stage with
// the given group tables.
func StandingsPayload(stage string, groups map[string][]map[string]any) map[string]any {
	children := make([]map[string]any, 0, len(groups))
	for name, entries := range groups {
		children = append(children, map[string]any{
			"name":      name,
			"standings": map[string]any{"entries": entries},
		})
	}
	return map[string]any{
		"name": "World Cup Qualifying",
		"seasons": []map[string]any{{
			"displayName": "2026",
			"types": []map[string]any{{
				"name":         stage,
				"hasStandings": true,
			}},
		}},
		"children": children,
	}
}

// MockStandingsServer serves per-league standings payloads keyed by
// league code (e.g. "fifa.worldq.uefa"). Leagues without a payload get
// a 404, which the collector records as a per-confederation failure.
func MockStandingsServer(t *testing.T, payloads map[string]any) *httptest.Server {
	t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for league, payload := range payloads {
			if strings.Contains(r.URL.Path, league) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(payload)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// WaitForCondition waits for a condition to become true or times out.
func WaitForCondition(t *testing.T, timeout time.Duration, condition func() bool, message string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.Fail(t, "condition not met within timeout", message)
}

// CreateTestContext creates a context with a timeout for testing.
func CreateTestContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}

// GetEnvOrDefault returns environment variable value or a default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SkipIfShort skips test if running in short mode.
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test in short mode")
	}
}
