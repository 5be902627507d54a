package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/streamhub/signal-service/internal/config"
)

func iceServersFrom(t *testing.T, h *ICEHandler) []map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/ice-servers", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		ICEServers []map[string]interface{} `json:"iceServers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.ICEServers
}

func TestICEHandlerDefaultsToSTUN(t *testing.T) {
	servers := iceServersFrom(t, NewICEHandler(nil))
	if len(servers) != 1 {
		t.Fatalf("servers=%v, want single STUN fallback", servers)
	}
	urls, _ := servers[0]["urls"].([]interface{})
	if len(urls) != 1 || urls[0] != "stun:stun.l.google.com:19302" {
		t.Fatalf("fallback urls=%v", urls)
	}
}

func TestICEHandlerKeepsConfiguredTURN(t *testing.T) {
	h := NewICEHandler([]config.ICEServer{
		{URLs: []string{"turn:turn.example.com:3478"}, Username: "u", Credential: "c"},
	})
	servers := iceServersFrom(t, h)

	// TURN-only config still gets a STUN fallback prepended.
	if len(servers) != 2 {
		t.Fatalf("servers=%v, want STUN fallback + TURN", servers)
	}
	if servers[1]["username"] != "u" {
		t.Fatalf("turn entry=%v", servers[1])
	}
}

func TestICEHandlerRejectsPost(t *testing.T) {
	rec := httptest.NewRecorder()
	NewICEHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ice-servers", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
