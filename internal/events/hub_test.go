package events_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"audioshelf/internal/events"
	"audioshelf/internal/logging"
)

func dialHub(t *testing.T, hub *events.Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := events.NewHub(logging.NewNop())
	t.Cleanup(hub.Close)
	conn := dialHub(t, hub)

	hub.Emit(events.AuthorRemoved, map[string]string{"id": "a1", "libraryId": "lib"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Event string            `json:"event"`
		Data  map[string]string `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Event != "author_removed" || msg.Data["id"] != "a1" {
		t.Fatalf("unexpected message: %s", data)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := events.NewHub(logging.NewNop())
	conn := dialHub(t, hub)

	hub.Close()
	if hub.Clients() != 0 {
		t.Fatalf("expected no clients after close, got %d", hub.Clients())
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to close")
	}
	hub.Emit(events.ItemsUpdated, nil)
}

func TestRecorderKeepsOrder(t *testing.T) {
	var rec events.Recorder
	rec.Emit(events.ItemsUpdated, 1)
	rec.Emit(events.AuthorRemoved, 2)
	rec.Emit(events.AuthorUpdated, 3)

	names := rec.Names()
	want := []events.Event{events.ItemsUpdated, events.AuthorRemoved, events.AuthorUpdated}
	if len(names) != len(want) {
		t.Fatalf("unexpected events: %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("unexpected order: %v", names)
		}
	}
	if rec.Messages()[2].Data != 3 {
		t.Fatalf("unexpected payload: %+v", rec.Messages()[2])
	}
	rec.Reset()
	if len(rec.Messages()) != 0 {
		t.Fatal("expected reset to clear messages")
	}
}
