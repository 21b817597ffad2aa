package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning = errors.New("queue not running")
	ErrQueueFull  = errors.New("queue full")
	// ErrPermanent marks a job failure that must not be retried.
	ErrPermanent = errors.New("permanent job failure")
)

type messageIDKey struct{}

// WithMessageID stores the queue message id on ctx for the job handler.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey{}, id)
}

// MessageID returns the id of the message being handled, if any.
func MessageID(ctx context.Context) string {
	id, _ := ctx.Value(messageIDKey{}).(string)
	return id
}

type QueueConfig struct {
	Workers    int
	QueueSize  int // MemoryQueue buffer; Redis lists are unbounded
	RetryLimit int
	// RetryDelay is the first retry delay; each further attempt doubles it.
	RetryDelay time.Duration
	JobTimeout time.Duration // per-attempt deadline, 0 = none
}

func (c *QueueConfig) withDefaults() *QueueConfig {
	out := QueueConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 100
	}
	if out.RetryLimit < 0 {
		out.RetryLimit = 0
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	return &out
}

// retryDelay returns the wait before the given retry attempt (1-based).
func (c *QueueConfig) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 16 {
		attempt = 16
	}
	return c.RetryDelay << (attempt - 1)
}

// Message is the envelope a queue stores. Payload stays in the producer's
// form in memory and is JSON on the wire.
type Message struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Attempts  int         `json:"attempts"`
	Timestamp time.Time   `json:"timestamp"`
	LastError string      `json:"last_error,omitempty"`
}

// wireMessage is Message as decoded from Redis, payload kept raw for ParsePayload.
type wireMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
	LastError string          `json:"last_error,omitempty"`
}

func (w wireMessage) message() Message {
	return Message{ID: w.ID, Type: w.Type, Payload: w.Payload, Attempts: w.Attempts, Timestamp: w.Timestamp, LastError: w.LastError}
}

// runAttempt calls job once under the per-attempt deadline.
func runAttempt(ctx context.Context, job Job, msg Message, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return job.Handle(WithMessageID(ctx, msg.ID), msg.Payload)
}

// retryable reports whether a failed attempt may be tried again.
func retryable(ctx context.Context, err error) bool {
	return !errors.Is(err, ErrPermanent) && ctx.Err() == nil
}

// ParsePayload converts a payload as handed to Job.Handle into T. Memory queues
// pass the producer's value, Redis queues pass raw JSON.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		return decodePayload[T](p)
	case []byte:
		return decodePayload[T](p)
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		return decodePayload[T](data)
	default:
		return nil, fmt.Errorf("payload: unsupported type %T", payload)
	}
}

func decodePayload[T any](data []byte) (*T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return &out, nil
}
