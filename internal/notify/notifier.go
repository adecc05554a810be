// Package notify owns outbound delivery. All producers enqueue onto one
// dispatcher; a single goroutine drains the queue and talks to the delivery
// client, so pollers and the alert engine never block on the messenger API.
package notify

import (
	"context"
	"log/slog"

	"github.com/AsetGithub/evm-lens-bot/internal/metrics"
)

// Notifier delivers a rendered message to a user. Implementations report
// failure only as an error for logging; the engine treats delivery as
// best-effort.
type Notifier interface {
	SendText(ctx context.Context, userID int64, text string) error
	SendPhoto(ctx context.Context, userID int64, photo []byte, caption string) error
}

// Kind labels a message for metrics and the notification log.
const (
	KindTransfer = "transfer"
	KindAlert    = "alert"
	KindReply    = "reply"
)

type Message struct {
	UserID int64
	Text   string
	Kind   string

	// Photo, when set, is sent with Text as caption.
	Photo []byte
}

type Dispatcher struct {
	notifier Notifier
	queue    chan Message
	log      *slog.Logger
}

func NewDispatcher(notifier Notifier, queueSize int, log *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		notifier: notifier,
		queue:    make(chan Message, queueSize),
		log:      log.With("component", "dispatcher"),
	}
}

// Enqueue hands a message to the dispatch goroutine. It never blocks: when
// the queue is full the message is dropped and counted, keeping a slow
// messenger API from stalling the pollers.
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		metrics.NotificationsFailedTotal.WithLabelValues(msg.Kind).Inc()
		d.log.Warn("dispatch queue full, dropping message", "user_id", msg.UserID, "kind", msg.Kind)
		return false
	}
}

// Run drains the queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-d.queue:
			metrics.NotifyQueueDepth.Set(float64(len(d.queue)))
			d.deliver(ctx, msg)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	var err error
	if msg.Photo != nil {
		err = d.notifier.SendPhoto(ctx, msg.UserID, msg.Photo, msg.Text)
	} else {
		err = d.notifier.SendText(ctx, msg.UserID, msg.Text)
	}
	if err != nil {
		metrics.NotificationsFailedTotal.WithLabelValues(msg.Kind).Inc()
		d.log.Error("notification delivery failed", "user_id", msg.UserID, "kind", msg.Kind, "error", err)
		return
	}
	metrics.NotificationsSentTotal.WithLabelValues(msg.Kind).Inc()
}
