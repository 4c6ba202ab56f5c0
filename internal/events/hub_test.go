package events

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(log.New(io.Discard, "", 0))
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		_ = hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	msg := read(t, ctx, conn)
	if msg.Type != TypeConnected {
		t.Fatalf("first message type = %q, want %q", msg.Type, TypeConnected)
	}
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	return msg
}

func TestHub_Publish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub, url := newTestHub(t)
	conn := dial(t, ctx, url)

	if n := hub.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d, want 1", n)
	}

	hub.Publish("points_changed", map[string]float64{"points": 12.5})

	msg := read(t, ctx, conn)
	if msg.Type != "points_changed" {
		t.Fatalf("type = %q, want points_changed", msg.Type)
	}
	var data map[string]float64
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	if data["points"] != 12.5 {
		t.Errorf("points = %v, want 12.5", data["points"])
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestHub_FansOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub, url := newTestHub(t)
	conns := []*websocket.Conn{dial(t, ctx, url), dial(t, ctx, url), dial(t, ctx, url)}

	hub.Publish("import_complete", nil)

	for i, conn := range conns {
		if msg := read(t, ctx, conn); msg.Type != "import_complete" {
			t.Errorf("client %d got %q", i, msg.Type)
		}
	}
}

func TestHub_Disconnect(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub, url := newTestHub(t)
	conn := dial(t, ctx, url)
	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d after disconnect", hub.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_PublishAfterClose(t *testing.T) {
	hub := NewHub(log.New(io.Discard, "", 0))
	_ = hub.Close()
	hub.Publish("record_added", map[string]string{"id": "x"})
}
