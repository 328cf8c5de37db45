package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/matchday-app/chat-service/internal/config"
	"github.com/matchday-app/chat-service/internal/domain"
)

func testHub() *Hub {
	h := NewHub(config.WebSocketConfig{
		PingInterval:   30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 8192,
	})
	go h.Run()
	return h
}

// testClient builds a client without a live connection; delivery is
// observed on the Send channel directly.
func testClient(h *Hub, id, userID string) *Client {
	return &Client{
		ID:      id,
		Hub:     h,
		Send:    make(chan []byte, 16),
		Session: domain.NewSession(id, domain.Actor{ID: userID}),
	}
}

func recv(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case data := <-c.Send:
		return data
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.Send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcastReachesRoomMembers(t *testing.T) {
	h := testHub()

	c1 := testClient(h, "c1", "u1")
	c2 := testClient(h, "c2", "u2")
	outsider := testClient(h, "c3", "u3")
	for _, c := range []*Client{c1, c2, outsider} {
		h.Register(c)
	}
	h.JoinRoom(c1, "r1")
	h.JoinRoom(c2, "r1")

	if err := h.BroadcastToRoom("r1", map[string]string{"type": "test"}, ""); err != nil {
		t.Fatalf("BroadcastToRoom: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(recv(t, c1), &got); err != nil || got["type"] != "test" {
		t.Fatalf("c1 received bad payload: %v %v", got, err)
	}
	recv(t, c2)
	assertSilent(t, outsider)
}

func TestBroadcastExcludesClient(t *testing.T) {
	h := testHub()

	c1 := testClient(h, "c1", "u1")
	c2 := testClient(h, "c2", "u2")
	h.Register(c1)
	h.Register(c2)
	h.JoinRoom(c1, "r1")
	h.JoinRoom(c2, "r1")

	if err := h.BroadcastToRoom("r1", map[string]string{"type": "test"}, "c1"); err != nil {
		t.Fatal(err)
	}
	recv(t, c2)
	assertSilent(t, c1)
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	h := testHub()

	c1 := testClient(h, "c1", "u1")
	h.Register(c1)
	h.JoinRoom(c1, "r1")
	h.LeaveRoom(c1, "r1")

	if err := h.BroadcastToRoom("r1", map[string]string{"type": "test"}, ""); err != nil {
		t.Fatal(err)
	}
	assertSilent(t, c1)
}

func TestSendToUserInRoom(t *testing.T) {
	h := testHub()

	// u1 holds two sessions; u2 holds one.
	u1a := testClient(h, "c1", "u1")
	u1b := testClient(h, "c2", "u1")
	u2 := testClient(h, "c3", "u2")
	for _, c := range []*Client{u1a, u1b, u2} {
		h.Register(c)
		h.JoinRoom(c, "r1")
	}

	if err := h.SendToUserInRoom("r1", "u1", map[string]string{"type": "receipt"}); err != nil {
		t.Fatal(err)
	}
	recv(t, u1a)
	recv(t, u1b)
	assertSilent(t, u2)
}

func TestIsUserInRoom(t *testing.T) {
	h := testHub()

	c1 := testClient(h, "c1", "u1")
	h.Register(c1)
	h.JoinRoom(c1, "r1")

	if !h.IsUserInRoom("r1", "u1") {
		t.Fatal("u1 should be in r1")
	}
	if h.IsUserInRoom("r1", "u2") {
		t.Fatal("u2 never joined r1")
	}
	if h.GetRoomClientCount("r1") != 1 {
		t.Fatal("expected one client in r1")
	}
}
