package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"watermate-backend/internal/model"
	"watermate-backend/internal/store"
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
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestWorkerPool_Dispatch(t *testing.T) {
	db, _ := newTestDB(t)
	wp := NewWorkerPool(1, db, &webpush.Options{})

	reminder := store.DueReminder{UserID: 123, UserName: "Kat", DuePlants: 2}
	wp.Dispatch(reminder)

	select {
	case job := <-wp.jobs:
		assert.Equal(t, int64(123), job.UserID)
		assert.Equal(t, int64(2), job.DuePlants)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestReminderMessage(t *testing.T) {
	assert.Equal(t, "Kat, one of your plants is ready for water today!",
		ReminderMessage(store.DueReminder{UserName: "Kat", DuePlants: 1}))
	assert.Equal(t, "Kat, 3 of your plants are ready for water today!",
		ReminderMessage(store.DueReminder{UserName: "Kat", DuePlants: 3}))
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	gormDB, mock := newTestDB(t)
	wp := NewWorkerPool(1, gormDB, &webpush.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	t.Run("pushes one notification per subscription", func(t *testing.T) {
		var wg sync.WaitGroup
		wg.Add(2)

		var mu sync.Mutex
		var endpoints []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				mu.Lock()
				endpoints = append(endpoints, sub.Endpoint)
				mu.Unlock()
				assert.Equal(t, "Kat, 2 of your plants are ready for water today!", string(payload))
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		wp.Dispatch(store.DueReminder{
			UserID:    7,
			UserName:  "Kat",
			DuePlants: 2,
			Subscriptions: []model.PushSubscription{
				{Endpoint: "https://example.com/push/a", P256DH: "k1", Auth: "a1", UserID: 7},
				{Endpoint: "https://example.com/push/b", P256DH: "k2", Auth: "a2", UserID: 7},
			},
		})

		wg.Wait()
		assert.ElementsMatch(t, []string{"https://example.com/push/a", "https://example.com/push/b"}, endpoints)
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "push_subscriptions" WHERE endpoint = $1`)).
			WithArgs("https://example.com/push/expired").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		wp.Dispatch(store.DueReminder{
			UserID:    7,
			UserName:  "Kat",
			DuePlants: 1,
			Subscriptions: []model.PushSubscription{
				{Endpoint: "https://example.com/push/expired", P256DH: "k", Auth: "a", UserID: 7},
			},
		})

		// A short sleep to allow the worker to process the job
		time.Sleep(100 * time.Millisecond)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
