package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxInboundBytes = 4 << 10
)

// Inbound client events.
const (
	evJoinChat  = "join_chat"
	evLeaveChat = "leave_chat"
	evError     = "error"
)

type inboundEvent struct {
	Event  string `json:"event"`
	ChatID string `json:"chatId"`
}

// JoinAuthorizer decides whether a user may join a chat room. Admits only
// participants of the target chat.
type JoinAuthorizer func(ctx context.Context, chatID, userID primitive.ObjectID) bool

// Client is one websocket connection owned by an authenticated user.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	userID  primitive.ObjectID
	canJoin JoinAuthorizer

	// send is never closed; done signals shutdown so a concurrent
	// Publish cannot write to a closed channel.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID, canJoin JoinAuthorizer) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		userID:  userID,
		canJoin: canJoin,
		send:    make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.LeaveAll(c)
		close(c.done)
		c.conn.Close()
	})
}

// ReadPump consumes inbound events until the connection drops. Runs on the
// handler goroutine.
func (c *Client) ReadPump(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxInboundBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev inboundEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			return
		}
		switch ev.Event {
		case evJoinChat:
			chatID, err := primitive.ObjectIDFromHex(ev.ChatID)
			if err != nil {
				c.sendError("invalid chat id")
				continue
			}
			if !c.canJoin(ctx, chatID, c.userID) {
				c.sendError("not a participant of this chat")
				continue
			}
			c.hub.Join(ev.ChatID, c)
		case evLeaveChat:
			c.hub.Leave(ev.ChatID, c)
		default:
			c.sendError("unknown event")
		}
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case b := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) sendError(msg string) {
	b, err := json.Marshal(Event{Event: evError, Data: map[string]string{"message": msg}})
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}
