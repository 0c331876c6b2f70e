package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const pingInterval = 90 * time.Second

// notificationSource is the part of *pq.Listener the bridge needs.
type notificationSource interface {
	Listen(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// PGListener bridges Postgres LISTEN/NOTIFY into a Publisher.
type PGListener struct {
	channel   string
	publisher Publisher
	logger    *slog.Logger
	open      func(onEvent pq.EventCallbackType) notificationSource
}

// NewPGListener creates a bridge for dsn that listens on channel.
func NewPGListener(dsn, channel string, minReconnect, maxReconnect time.Duration, publisher Publisher, logger *slog.Logger) *PGListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGListener{
		channel:   channel,
		publisher: publisher,
		logger:    logger,
		open: func(onEvent pq.EventCallbackType) notificationSource {
			return pq.NewListener(dsn, minReconnect, maxReconnect, onEvent)
		},
	}
}

// Run listens until ctx is cancelled. After every reconnect subscribers get a
// resync marker because notifications sent while disconnected are lost.
func (l *PGListener) Run(ctx context.Context) error {
	listener := l.open(func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
			l.logger.Warn("realtime listener connection problem", slog.String("channel", l.channel), slog.Any("error", err))
		case pq.ListenerEventReconnected:
			l.logger.Info("realtime listener reconnected", slog.String("channel", l.channel))
			l.publisher.Publish(Resync())
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen on %q: %w", l.channel, err)
	}
	l.logger.Info("realtime listener started", slog.String("channel", l.channel))

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	notifications := listener.NotificationChannel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("realtime listener shutting down", slog.String("channel", l.channel))
			return nil
		case n, ok := <-notifications:
			if !ok {
				return fmt.Errorf("listener on %q closed", l.channel)
			}
			// pq delivers nil after a reconnect; the event callback already asked for a resync.
			if n == nil {
				continue
			}
			ev, err := DecodeNotification(n.Extra)
			if err != nil {
				l.logger.Warn("dropping malformed notification", slog.String("channel", n.Channel), slog.Any("error", err))
				continue
			}
			l.publisher.Publish(ev)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Debug("realtime listener ping failed", slog.Any("error", err))
				}
			}()
		}
	}
}
