package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, 8), done: make(chan struct{})}
}

func TestJoinLeave(t *testing.T) {
	h := NewHub()
	c := newTestClient(h)

	h.Join("room1", c)
	assert.Equal(t, 1, h.RoomSize("room1"))

	// join is idempotent per client
	h.Join("room1", c)
	assert.Equal(t, 1, h.RoomSize("room1"))

	h.Leave("room1", c)
	assert.Equal(t, 0, h.RoomSize("room1"))
}

func TestPublishReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub()
	in := newTestClient(h)
	out := newTestClient(h)

	h.Join("chat-a", in)
	h.Join("chat-b", out)

	h.Publish("chat-a", "new_message", map[string]string{"content": "hi"})

	select {
	case b := <-in.send:
		var ev Event
		require.NoError(t, json.Unmarshal(b, &ev))
		assert.Equal(t, "new_message", ev.Event)
	default:
		t.Fatal("member did not receive the event")
	}

	select {
	case <-out.send:
		t.Fatal("non-member received the event")
	default:
	}
}

func TestLeaveAllEmptiesEveryRoom(t *testing.T) {
	h := NewHub()
	c := newTestClient(h)

	h.Join("a", c)
	h.Join("b", c)
	h.LeaveAll(c)

	assert.Equal(t, 0, h.RoomSize("a"))
	assert.Equal(t, 0, h.RoomSize("b"))
}

func TestPublishSkipsShutDownClient(t *testing.T) {
	h := NewHub()
	c := newTestClient(h)
	h.Join("room", c)

	// a publish snapshot may still hold a client that shut down in
	// between; delivery must be skipped, not sent on a dead channel
	close(c.done)
	h.Publish("room", "new_message", map[string]string{"content": "late"})

	select {
	case <-c.send:
		t.Fatal("shut down client still received the event")
	default:
	}
}

func TestPublishToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	h.Publish("nobody-here", "chat_updated", nil)
}
