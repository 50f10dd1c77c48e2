package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/metrics"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type stubSender struct {
	calls int
	err   error
}

func (s *stubSender) Send(ctx context.Context, msg Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "msg_1", nil
}

func newTestQueue(rdb *redis.Client, sender Sender) *Queue {
	q := NewQueue(rdb, sender)
	q.retryDelay = 0
	return q
}

func TestEnqueue(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush(queueKey, `.*payment_confirmation.*`).SetVal(1)

	q := newTestQueue(db, &stubSender{})
	err := q.Enqueue(context.Background(), KindPaymentConfirmation, Message{To: "user@example.com", Subject: "Hi", HTML: "<p>x</p>"})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueueRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(assert.AnError)

	q := newTestQueue(db, &stubSender{})
	err := q.Enqueue(context.Background(), KindWelcome, Message{To: "user@example.com"})

	assert.ErrorIs(t, err, ErrNotification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeliver(t *testing.T) {
	t.Run("Success touches nothing else", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		sender := &stubSender{}

		newTestQueue(db, sender).deliver(context.Background(), Job{Message: Message{To: "a@b.c"}, Kind: KindWelcome})

		assert.Equal(t, 1, sender.calls)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure is requeued with incremented tries", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.Regexp().ExpectLPush(queueKey, `.*"tries":1.*`).SetVal(1)

		newTestQueue(db, &stubSender{err: errors.New("boom")}).deliver(context.Background(), Job{Message: Message{To: "a@b.c"}, Kind: KindWelcome})

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Last attempt goes to failed queue", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		mock.Regexp().ExpectLPush(failedQueueKey, `.*boom.*`).SetVal(1)

		newTestQueue(db, &stubSender{err: errors.New("boom")}).deliver(context.Background(), Job{Message: Message{To: "a@b.c"}, Kind: KindWelcome, Tries: maxTries - 1})

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeliverRequeueFailureIsCounted(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.Regexp().ExpectLPush(queueKey, `.*`).SetErr(assert.AnError)

	failed := metrics.EmailsSentTotal.WithLabelValues(KindContact, "failed")
	before := testutil.ToFloat64(failed)

	newTestQueue(db, &stubSender{err: errors.New("boom")}).deliver(context.Background(), Job{Message: Message{To: "a@b.c"}, Kind: KindContact})

	assert.Equal(t, before+1, testutil.ToFloat64(failed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextBacksOffOnRedisError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectBRPop(2*time.Second, queueKey).SetErr(assert.AnError)

	sender := &stubSender{}
	q := newTestQueue(db, sender)
	q.errorBackoff = 50 * time.Millisecond

	start := time.Now()
	q.processNext(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Zero(t, sender.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessNextEmptyQueueDoesNotBackOff(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectBRPop(2*time.Second, queueKey).RedisNil()

	q := newTestQueue(db, &stubSender{})
	q.errorBackoff = time.Hour

	done := make(chan struct{})
	go func() {
		q.processNext(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker slept on an empty queue")
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueLength(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectLLen(queueKey).SetVal(5)

	assert.Equal(t, int64(5), newTestQueue(db, nil).QueueLength(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendSender(t *testing.T) {
	t.Run("Returns provider message id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/emails", r.URL.Path)
			assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))

			var body resend.SendEmailRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "noreply@smartwin.example", body.From)
			assert.Equal(t, []string{"user@example.com"}, body.To)

			w.Write([]byte(`{"id":"49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
		}))
		defer srv.Close()

		id, err := NewResendSender(srv.URL, "re_test", "noreply@smartwin.example").
			Send(context.Background(), Message{To: "user@example.com", Subject: "s", HTML: "h"})

		require.NoError(t, err)
		assert.Equal(t, "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794", id)
	})

	t.Run("Surfaces provider error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
		}))
		defer srv.Close()

		_, err := NewResendSender(srv.URL, "re_test", "noreply@smartwin.example").
			Send(context.Background(), Message{To: "bad", Subject: "s", HTML: "h"})

		assert.ErrorIs(t, err, ErrNotification)
		assert.Contains(t, err.Error(), "Invalid to field")
	})

	t.Run("Missing key", func(t *testing.T) {
		_, err := NewResendSender("http://unused", "", "x").Send(context.Background(), Message{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})
}
