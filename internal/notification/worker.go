package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"family-groceries/internal/metrics"
	"family-groceries/internal/model"
	"family-groceries/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the push payload shown by the browser.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// WorkerPool fans list announcements out to every push subscription.
type WorkerPool struct {
	size    int
	jobs    chan Message
	subs    store.PushStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.PushStore, webpushOptions *webpush.Options, logger *slog.Logger, rec metrics.Recorder) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Message, size*8),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
		metrics: rec,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("push worker started", "worker", id)
	for {
		select {
		case msg := <-wp.jobs:
			wp.sendToAll(ctx, msg)
		case <-ctx.Done():
			wp.logger.Debug("push worker shutting down", "worker", id)
			return
		}
	}
}

// Announce queues a message without blocking. When the queue is full the
// message is dropped.
func (wp *WorkerPool) Announce(title, body string) {
	select {
	case wp.jobs <- Message{Title: title, Body: body}:
	default:
		wp.logger.Warn("push queue full, dropping announcement", "body", body)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Message {
	return wp.jobs
}

func (wp *WorkerPool) sendToAll(ctx context.Context, msg Message) {
	subscriptions, err := wp.subs.ListPushSubscriptions(ctx)
	if err != nil {
		wp.logger.Error("failed to fetch push subscriptions", "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		wp.logger.Error("failed to encode push payload", "error", err)
		return
	}

	wp.logger.Info("sending push notifications", "count", len(subscriptions), "body", msg.Body)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.RecordPush(false)
		wp.logger.Warn("failed to send push notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()
	wp.metrics.RecordPush(resp.StatusCode < 300)

	// The browser dropped the subscription.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.logger.Info("push subscription expired, deleting", "endpoint", sub.Endpoint)
		if err := wp.subs.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
