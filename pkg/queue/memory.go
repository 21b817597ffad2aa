package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"StockBrain/pkg/logger"

	"github.com/google/uuid"
)

// MemoryQueue runs jobs on in-process workers. Messages do not survive a restart.
type MemoryQueue struct {
	logger  *logger.Logger
	config  *QueueConfig
	jobs    map[string]Job
	ch      chan Message
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewMemoryQueue(lgr *logger.Logger, config *QueueConfig) *MemoryQueue {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryQueue{
		logger: lgr,
		config: cfg,
		jobs:   make(map[string]Job),
		ch:     make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *MemoryQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.Type()] = job
}

func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("memory queue started", logger.Int("workers", q.config.Workers))
	return nil
}

// Stop cancels running jobs and waits for the workers. Buffered messages are dropped.
func (q *MemoryQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("memory queue stop: %w", ctx.Err())
	case <-done:
		if n := len(q.ch); n > 0 {
			q.logger.Warn("memory queue dropped pending messages", logger.Int("pending", n))
		}
		return nil
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	_, err := q.EnqueueWithID(ctx, uuid.NewString(), msgType, payload)
	return err
}

// EnqueueWithID fails fast with ErrQueueFull rather than blocking the caller.
func (q *MemoryQueue) EnqueueWithID(_ context.Context, id, msgType string, payload interface{}) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return "", ErrNotRunning
	}
	if _, ok := q.jobs[msgType]; !ok {
		return "", fmt.Errorf("no job registered for type: %s", msgType)
	}
	select {
	case q.ch <- Message{ID: id, Type: msgType, Payload: payload, Timestamp: time.Now()}:
		return id, nil
	default:
		return "", ErrQueueFull
	}
}

func (q *MemoryQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			q.handle(msg)
		}
	}
}

// handle retries in place; the worker is busy for the whole backoff.
func (q *MemoryQueue) handle(msg Message) {
	q.mu.RLock()
	job := q.jobs[msg.Type]
	q.mu.RUnlock()

	for {
		err := runAttempt(q.ctx, job, msg, q.config.JobTimeout)
		if err == nil {
			return
		}
		q.logger.Error("message processing error",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempt", msg.Attempts+1),
			logger.Error(err))
		if msg.Attempts >= q.config.RetryLimit || !retryable(q.ctx, err) {
			return
		}
		msg.Attempts++
		select {
		case <-q.ctx.Done():
			return
		case <-time.After(q.config.retryDelay(msg.Attempts)):
		}
	}
}
