package service

// Events pushed through the realtime gateway. Room names are chat ids.
const (
	EventNewMessage      = "new_message"
	EventMessagesDeleted = "messages_deleted"
	EventChatUpdated     = "chat_updated"
)

// Publisher is the narrow surface services use to reach the realtime
// gateway; they never touch connection objects directly.
type Publisher interface {
	Publish(room, event string, payload any)
}

// Mailer queues an email for asynchronous delivery.
type Mailer interface {
	Enqueue(to, subject, body string)
}

// noopPublisher is used when no gateway is wired (tests, tooling).
type noopPublisher struct{}

func (noopPublisher) Publish(room, event string, payload any) {}

// NopPublisher returns a Publisher that discards events.
func NopPublisher() Publisher { return noopPublisher{} }
