package notification

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"family-groceries/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// Send calls the mock SendFunc.
func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func newTestPool(t *testing.T, size int) (*WorkerPool, sqlmock.Sqlmock) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(size, store.NewGormStore(gormDB), &webpush.Options{},
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	return wp, mock
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func TestWorkerPool_Announce(t *testing.T) {
	wp, _ := newTestPool(t, 1)

	wp.Announce("Family Groceries", "Added Milk")

	select {
	case job := <-wp.Jobs():
		assert.Equal(t, Message{Title: "Family Groceries", Body: "Added Milk"}, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_AnnounceNeverBlocks(t *testing.T) {
	wp, _ := newTestPool(t, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(wp.Jobs())+5; i++ {
			wp.Announce("Family Groceries", "Added Milk")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Announce blocked on a full queue")
	}
	assert.Len(t, wp.Jobs(), cap(wp.Jobs()))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	wp, mock := newTestPool(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("sends notification to every subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				assert.JSONEq(t, `{"title":"Family Groceries","body":"Purchased 2 items!"}`, string(payload))
				wg.Done()
				return response(http.StatusCreated), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/a", "k1", "a1", time.Now()).
				AddRow("https://example.com/b", "k2", "a2", time.Now()))

		wp.Announce("Family Groceries", "Purchased 2 items!")
		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/a", "https://example.com/b"}, endpoints)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
				AddRow("https://example.com/expired", "k", "a", time.Now()))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "push_subscriptions" WHERE endpoint = \$1`).
			WithArgs("https://example.com/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Announce("Family Groceries", "Added Eggs")

		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("no subscriptions sends nothing", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				t.Error("unexpected send")
				return response(http.StatusCreated), nil
			},
		}
		mock.ExpectQuery(`SELECT \* FROM "push_subscriptions"`).
			WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}))

		wp.Announce("Family Groceries", "Added Tea")
		assert.Eventually(t, func() bool {
			return mock.ExpectationsWereMet() == nil
		}, time.Second, 10*time.Millisecond)
	})
}
