package mailer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Outbox queues emails and delivers them asynchronously with bounded
// retry. Enqueue never blocks on transport success, so HTTP responses do
// not depend on the mail relay being up.
type Outbox struct {
	sender   Sender
	log      zerolog.Logger
	queue    chan job
	retries  int
	backoff  time.Duration
	stopOnce sync.Once
	done     chan struct{}
}

type job struct {
	to      string
	subject string
	body    string
}

func NewOutbox(sender Sender, log zerolog.Logger, capacity, retries int, backoff time.Duration) *Outbox {
	if capacity <= 0 {
		capacity = 256
	}
	if retries <= 0 {
		retries = 3
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	o := &Outbox{
		sender:  sender,
		log:     log,
		queue:   make(chan job, capacity),
		retries: retries,
		backoff: backoff,
		done:    make(chan struct{}),
	}
	go o.run()
	return o
}

// Enqueue queues an email for delivery. A full queue drops the message and
// logs it rather than blocking the caller.
func (o *Outbox) Enqueue(to, subject, body string) {
	select {
	case o.queue <- job{to: to, subject: subject, body: body}:
	default:
		o.log.Error().Str("to", to).Str("subject", subject).Msg("mail outbox full, dropping message")
	}
}

func (o *Outbox) run() {
	for {
		select {
		case j := <-o.queue:
			o.deliver(j)
		case <-o.done:
			// drain what is already queued
			for {
				select {
				case j := <-o.queue:
					o.deliver(j)
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox) deliver(j job) {
	var err error
	for attempt := 1; attempt <= o.retries; attempt++ {
		if err = o.sender.Send(j.to, j.subject, j.body); err == nil {
			return
		}
		o.log.Warn().Err(err).Str("to", j.to).Int("attempt", attempt).Msg("mail delivery failed")
		if attempt < o.retries {
			time.Sleep(o.backoff)
		}
	}
	o.log.Error().Err(err).Str("to", j.to).Str("subject", j.subject).Msg("giving up on mail delivery")
}

// Close stops the delivery loop after draining queued mail.
func (o *Outbox) Close() {
	o.stopOnce.Do(func() { close(o.done) })
}
