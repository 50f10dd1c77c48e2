package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyncSphere7/smartwin-official/internal/logger"
	"github.com/SyncSphere7/smartwin-official/internal/metrics"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3
)

// Mailer is the queueing surface the workflows depend on.
type Mailer interface {
	Enqueue(ctx context.Context, kind string, msg Message) error
}

type Job struct {
	Message
	Kind    string    `json:"kind"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

// Queue buffers outgoing mail in Redis and delivers it from a background
// worker, so request handlers never wait on the email provider.
type Queue struct {
	redis      *redis.Client
	sender     Sender
	retryDelay time.Duration
	// errorBackoff pauses the worker after a Redis failure.
	errorBackoff time.Duration
}

func NewQueue(rdb *redis.Client, sender Sender) *Queue {
	return &Queue{
		redis:        rdb,
		sender:       sender,
		retryDelay:   5 * time.Second,
		errorBackoff: time.Second,
	}
}

// Enqueue stores a message for delivery. kind labels the message in logs and metrics.
func (q *Queue) Enqueue(ctx context.Context, kind string, msg Message) error {
	data, err := json.Marshal(Job{Message: msg, Kind: kind, Created: time.Now()})
	if err != nil {
		return fmt.Errorf("%w: marshal job: %v", ErrNotification, err)
	}

	if err := q.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Error("failed to queue email", "kind", kind, "to", msg.To, "error", err)
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}

	logger.Info("email queued", "kind", kind, "to", msg.To)
	return nil
}

func (q *Queue) Start(ctx context.Context) {
	logger.Info("email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("email worker stopped")
			return
		default:
			q.processNext(ctx)
		}
	}
}

func (q *Queue) processNext(ctx context.Context) {
	result, err := q.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return
		}
		logger.Error("email queue pop failed", "error", err)
		q.sleep(ctx, q.errorBackoff)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("bad email job", "error", err)
		return
	}

	q.deliver(ctx, job)
	metrics.EmailQueueLength.Set(float64(q.QueueLength(ctx)))
}

func (q *Queue) deliver(ctx context.Context, job Job) {
	job.Tries++
	id, err := q.sender.Send(ctx, job.Message)
	if err == nil {
		metrics.RecordEmail(job.Kind, "sent")
		logger.Info("email sent", "kind", job.Kind, "to", job.To, "message_id", id, "attempt", job.Tries)
		return
	}

	logger.Error("email delivery failed", "kind", job.Kind, "to", job.To, "attempt", job.Tries, "error", err)

	if job.Tries < maxTries {
		q.sleep(ctx, q.retryDelay)
		data, _ := json.Marshal(job)
		if err := q.redis.LPush(context.Background(), queueKey, data).Err(); err != nil {
			logger.Error("email requeue failed, message lost", "kind", job.Kind, "to", job.To, "attempt", job.Tries, "error", err)
			metrics.RecordEmail(job.Kind, "failed")
		}
		return
	}

	metrics.RecordEmail(job.Kind, "failed")
	q.saveFailed(job, err)
}

func (q *Queue) saveFailed(job Job, err error) {
	data, _ := json.Marshal(map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	})
	if pushErr := q.redis.LPush(context.Background(), failedQueueKey, data).Err(); pushErr != nil {
		logger.Error("email dead-letter push failed, message lost", "kind", job.Kind, "to", job.To, "error", pushErr)
		return
	}
	logger.Error("email moved to failed queue", "kind", job.Kind, "to", job.To)
}

func (q *Queue) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func (q *Queue) QueueLength(ctx context.Context) int64 {
	length, _ := q.redis.LLen(ctx, queueKey).Result()
	return length
}

func (q *Queue) Close() error {
	return q.redis.Close()
}
