package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamhub/signal-service/internal/config"
	"github.com/streamhub/signal-service/internal/hub"
	"github.com/streamhub/signal-service/internal/room"
	"github.com/streamhub/signal-service/internal/service"
	"github.com/streamhub/signal-service/pkg/token"
)

func startTestRelay(t *testing.T) (wsURL string, registry *room.Registry) {
	t.Helper()

	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}

	h := hub.NewHub(wsCfg)
	go h.Run()

	registry = room.NewRegistry()
	svc := service.NewSignalService(h, registry, nil, nil)
	wsHandler := NewWSHandler(h, svc, nil)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws", registry
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m map[string]interface{}
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func sendEvent(t *testing.T, conn *websocket.Conn, event map[string]interface{}) {
	t.Helper()
	if err := conn.WriteJSON(event); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// Full broadcast session: join, negotiate, announce, chat, tear down.
func TestBroadcastSessionLifecycle(t *testing.T) {
	wsURL, registry := startTestRelay(t)

	// A joins r1 as broadcaster.
	a := dial(t, wsURL)
	sendEvent(t, a, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "user-a", "isBroadcaster": true,
	})
	ev := readEvent(t, a)
	if ev["type"] != "room-joined" || ev["roomId"] != "r1" || ev["role"] != "broadcaster" {
		t.Fatalf("broadcaster join ack=%v", ev)
	}

	// B joins r1 as viewer; A learns B's connection id.
	b := dial(t, wsURL)
	sendEvent(t, b, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "user-b", "isBroadcaster": false,
	})
	ev = readEvent(t, b)
	if ev["type"] != "room-joined" || ev["role"] != "viewer" {
		t.Fatalf("viewer join ack=%v", ev)
	}

	ev = readEvent(t, a)
	if ev["type"] != "viewer-joined" {
		t.Fatalf("expected viewer-joined, got %v", ev)
	}
	viewerID, _ := ev["viewerId"].(string)
	if viewerID == "" {
		t.Fatalf("viewer-joined without viewerId: %v", ev)
	}

	// B asks for the stream; A is told who asked.
	sendEvent(t, b, map[string]interface{}{"type": "request-stream", "roomId": "r1"})
	ev = readEvent(t, a)
	if ev["type"] != "viewer-request-stream" || ev["viewerId"] != viewerID {
		t.Fatalf("request notification=%v", ev)
	}

	// A offers to B; envelope carries A's id and the room.
	sdpOffer := map[string]interface{}{"type": "offer", "sdp": "v=0\r\no=- 1 2 IN IP4 0.0.0.0"}
	sendEvent(t, a, map[string]interface{}{
		"type": "offer", "roomId": "r1", "offer": sdpOffer, "targetId": viewerID,
	})
	ev = readEvent(t, b)
	if ev["type"] != "offer" || ev["roomId"] != "r1" {
		t.Fatalf("forwarded offer=%v", ev)
	}
	broadcasterID, _ := ev["from"].(string)
	if broadcasterID == "" {
		t.Fatalf("offer without sender id: %v", ev)
	}
	gotOffer, _ := ev["offer"].(map[string]interface{})
	if gotOffer["sdp"] != sdpOffer["sdp"] {
		t.Fatalf("offer payload altered: %v", gotOffer)
	}

	// B answers back to A.
	sendEvent(t, b, map[string]interface{}{
		"type": "answer", "answer": map[string]interface{}{"type": "answer", "sdp": "v=0"}, "from": broadcasterID,
	})
	ev = readEvent(t, a)
	if ev["type"] != "answer" || ev["from"] != viewerID {
		t.Fatalf("forwarded answer=%v", ev)
	}

	// ICE candidates flow both ways through the same path.
	sendEvent(t, a, map[string]interface{}{
		"type": "ice-candidate", "candidate": map[string]interface{}{"candidate": "candidate:1"}, "targetId": viewerID,
	})
	ev = readEvent(t, b)
	if ev["type"] != "ice-candidate" || ev["from"] != broadcasterID {
		t.Fatalf("forwarded candidate=%v", ev)
	}

	// A announces media flow; everyone in the room hears it.
	sendEvent(t, a, map[string]interface{}{"type": "stream-started", "roomId": "r1"})
	for _, conn := range []*websocket.Conn{a, b} {
		ev = readEvent(t, conn)
		if ev["type"] != "broadcaster-started-stream" {
			t.Fatalf("start announcement=%v", ev)
		}
	}

	// Chat fans out to the room, sender included, with a timestamp.
	sendEvent(t, b, map[string]interface{}{
		"type": "chat-message", "roomId": "r1", "message": "hi", "userId": "user-b", "username": "bee",
	})
	for _, conn := range []*websocket.Conn{a, b} {
		ev = readEvent(t, conn)
		if ev["type"] != "chat-message" || ev["message"] != "hi" || ev["username"] != "bee" {
			t.Fatalf("chat=%v", ev)
		}
		if ts, _ := ev["timestamp"].(string); ts == "" {
			t.Fatalf("chat without server timestamp: %v", ev)
		}
	}

	// A drops; B is told the broadcaster left, the room survives.
	a.Close()
	ev = readEvent(t, b)
	if ev["type"] != "broadcaster-left" {
		t.Fatalf("expected broadcaster-left, got %v", ev)
	}
	if !registry.HasRoom("r1") {
		t.Fatalf("room removed while a viewer remains")
	}

	// B drops; the room is reaped.
	b.Close()
	waitFor(t, func() bool { return !registry.HasRoom("r1") }, "room still registered after last member left")
}

func TestOfferToUnknownTargetIsDropped(t *testing.T) {
	wsURL, _ := startTestRelay(t)

	a := dial(t, wsURL)
	sendEvent(t, a, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "user-a", "isBroadcaster": true,
	})
	readEvent(t, a) // join ack

	sendEvent(t, a, map[string]interface{}{
		"type": "offer", "roomId": "r1", "offer": map[string]interface{}{"sdp": "x"}, "targetId": "no-such-conn",
	})

	// The relay stays healthy: a ping still gets a pong, and no error
	// event surfaced for the dropped offer.
	sendEvent(t, a, map[string]interface{}{"type": "ping"})
	ev := readEvent(t, a)
	if ev["type"] != "pong" {
		t.Fatalf("expected pong, got %v", ev)
	}
}

func TestMalformedMessageGetsErrorEvent(t *testing.T) {
	wsURL, _ := startTestRelay(t)

	conn := dial(t, wsURL)
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, conn)
	if ev["type"] != "error" || ev["code"] != "BAD_REQUEST" {
		t.Fatalf("error event=%v", ev)
	}

	sendEvent(t, conn, map[string]interface{}{"type": "no-such-event"})
	ev = readEvent(t, conn)
	if ev["type"] != "error" {
		t.Fatalf("unknown type response=%v", ev)
	}
}

func TestSecondBroadcasterReplacesFirst(t *testing.T) {
	wsURL, _ := startTestRelay(t)

	b1 := dial(t, wsURL)
	sendEvent(t, b1, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "u1", "isBroadcaster": true,
	})
	readEvent(t, b1) // join ack

	b2 := dial(t, wsURL)
	sendEvent(t, b2, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "u2", "isBroadcaster": true,
	})
	readEvent(t, b2) // join ack

	ev := readEvent(t, b1)
	if ev["type"] != "broadcaster-replaced" || ev["roomId"] != "r1" {
		t.Fatalf("displaced notification=%v", ev)
	}
}

func TestTokenPinsChatIdentity(t *testing.T) {
	wsCfg := config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 65536,
	}

	h := hub.NewHub(wsCfg)
	go h.Run()

	verifier := token.NewVerifier("test-secret")
	svc := service.NewSignalService(h, room.NewRegistry(), nil, nil)
	wsHandler := NewWSHandler(h, svc, verifier)

	mux := http.NewServeMux()
	wsHandler.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	tok, err := verifier.Sign("u-real", "real-name", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn := dial(t, wsURL+"?token="+tok)

	sendEvent(t, conn, map[string]interface{}{
		"type": "join-room", "roomId": "r1", "userId": "u-forged", "isBroadcaster": true,
	})
	readEvent(t, conn) // join ack

	sendEvent(t, conn, map[string]interface{}{
		"type": "chat-message", "roomId": "r1", "message": "hi", "userId": "u-forged", "username": "forged",
	})
	ev := readEvent(t, conn)
	if ev["userId"] != "u-real" || ev["username"] != "real-name" {
		t.Fatalf("chat identity=%v, want token identity", ev)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
