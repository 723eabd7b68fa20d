package ws_test

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	server "virtual-space/server"
	"virtual-space/server/internal/net/ws"
)

func startTestServer(t *testing.T) (*server.Hub, *httptest.Server) {
	t.Helper()
	hub := server.NewHub(server.DefaultHubConfig(), server.NewEventBus(), nil, nil)
	handler := ws.NewHandler(hub, ws.HandlerConfig{})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// awaitFrame reads frames until one of the wanted type arrives. Unrelated
// frames, like interleaved playerUpdate broadcasts, are skipped.
func awaitFrame(t *testing.T, conn *websocket.Conn, wantType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read while waiting for %q failed: %v", wantType, err)
		}
		var frame map[string]any
		if err := json.Unmarshal(payload, &frame); err != nil {
			t.Fatalf("malformed frame: %v", err)
		}
		if frame["type"] == wantType {
			return frame
		}
	}
	t.Fatalf("no %q frame arrived in time", wantType)
	return nil
}

func join(t *testing.T, conn *websocket.Conn, name string) string {
	t.Helper()
	send(t, conn, map[string]any{"type": "join", "name": name, "avatar": 1})
	ack := awaitFrame(t, conn, "joined")
	id, _ := ack["id"].(string)
	if id == "" {
		t.Fatalf("joined ack missing the server-assigned id: %v", ack)
	}
	return id
}

func TestJoinAcksWithSnapshot(t *testing.T) {
	hub, srv := startTestServer(t)
	conn := dial(t, srv)

	send(t, conn, map[string]any{"type": "join", "name": "Ada", "avatar": 2})

	ack := awaitFrame(t, conn, "joined")
	id, _ := ack["id"].(string)
	players, ok := ack["players"].(map[string]any)
	if !ok {
		t.Fatalf("joined ack missing players snapshot: %v", ack)
	}
	self, ok := players[id].(map[string]any)
	if !ok {
		t.Fatalf("snapshot does not contain the joiner %q: %v", id, players)
	}
	if self["name"] != "Ada" {
		t.Fatalf("joiner record wrong: %v", self)
	}
	// Spawn point applies when the client sends no coordinates.
	if self["x"] != float64(400) || self["y"] != float64(300) {
		t.Fatalf("expected spawn point placement, got (%v, %v)", self["x"], self["y"])
	}

	update := awaitFrame(t, conn, "playerUpdate")
	if _, ok := update["players"].(map[string]any)[id]; !ok {
		t.Fatalf("joiner missing from the playerUpdate broadcast")
	}

	if hub.Registry().Count() != 1 {
		t.Fatalf("expected one registered participant, got %d", hub.Registry().Count())
	}
}

func TestJoinWithBlankNameClosesConnection(t *testing.T) {
	_, srv := startTestServer(t)
	conn := dial(t, srv)

	send(t, conn, map[string]any{"type": "join", "name": "   ", "avatar": 1})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		t.Fatalf("expected a close error, got %v", err)
	}
	if closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy violation close, got %d (%s)", closeErr.Code, closeErr.Text)
	}
}

func TestChatReachesEveryConnectedClient(t *testing.T) {
	_, srv := startTestServer(t)
	sender := dial(t, srv)
	receiver := dial(t, srv)

	senderID := join(t, sender, "Ada")
	join(t, receiver, "Grace")

	send(t, sender, map[string]any{"type": "chatMessage", "text": "hello room"})

	for name, conn := range map[string]*websocket.Conn{"sender": sender, "receiver": receiver} {
		frame := awaitFrame(t, conn, "chatMessage")
		if frame["text"] != "hello room" {
			t.Fatalf("%s got wrong text: %v", name, frame)
		}
		if frame["sender"] != senderID {
			t.Fatalf("%s got wrong sender id: %v", name, frame)
		}
		if frame["senderName"] != "Ada" {
			t.Fatalf("%s got wrong sender name: %v", name, frame)
		}
	}
}

func TestMoveBroadcastsToOtherClients(t *testing.T) {
	_, srv := startTestServer(t)
	mover := dial(t, srv)
	watcher := dial(t, srv)

	moverID := join(t, mover, "Ada")
	join(t, watcher, "Grace")

	send(t, mover, map[string]any{"type": "playerMove", "x": 123.0, "y": 45.0, "direction": "left", "moving": true})

	for {
		update := awaitFrame(t, watcher, "playerUpdate")
		moved, ok := update["players"].(map[string]any)[moverID].(map[string]any)
		if !ok {
			t.Fatalf("mover missing from playerUpdate: %v", update)
		}
		// Earlier join broadcasts may still be queued; wait for the one
		// that carries the new position.
		if moved["x"] == float64(123) {
			if moved["direction"] != "left" || moved["moving"] != true {
				t.Fatalf("move fields not broadcast: %v", moved)
			}
			return
		}
	}
}

func TestDisconnectBroadcastsPlayerLeft(t *testing.T) {
	hub, srv := startTestServer(t)
	leaver := dial(t, srv)
	watcher := dial(t, srv)

	leaverID := join(t, leaver, "Ada")
	join(t, watcher, "Grace")

	leaver.Close()

	left := awaitFrame(t, watcher, "playerLeft")
	if left["id"] != leaverID {
		t.Fatalf("playerLeft carries wrong id: %v", left)
	}

	deadline := time.Now().Add(3 * time.Second)
	for hub.Registry().Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds %d participants", hub.Registry().Count())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHeartbeatIsAckedToSenderOnly(t *testing.T) {
	_, srv := startTestServer(t)
	conn := dial(t, srv)
	join(t, conn, "Ada")

	sent := time.Now().Add(-25 * time.Millisecond).UnixMilli()
	send(t, conn, map[string]any{"type": "heartbeat", "sentAt": sent})

	ack := awaitFrame(t, conn, "heartbeat")
	if ack["clientTime"] != float64(sent) {
		t.Fatalf("ack should echo the client time: %v", ack)
	}
	if rtt, ok := ack["rtt"].(float64); !ok || rtt < 0 {
		t.Fatalf("ack missing rtt estimate: %v", ack)
	}
}

func TestIntentsBeforeJoinAreIgnored(t *testing.T) {
	hub, srv := startTestServer(t)
	conn := dial(t, srv)

	send(t, conn, map[string]any{"type": "playerMove", "x": 10.0, "y": 10.0})
	send(t, conn, map[string]any{"type": "chatMessage", "text": "too early"})
	join(t, conn, "Ada")

	if hub.Registry().Count() != 1 {
		t.Fatalf("pre-join intents must not register state, got %d participants", hub.Registry().Count())
	}
}
