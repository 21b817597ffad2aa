package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StockBrain/pkg/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const (
	// deadLetterCap bounds the dead letter list; older entries are trimmed.
	deadLetterCap   = 1000
	promoteInterval = time.Second
	promoteBatch    = 100
	statsEvery      = 15 // promoter ticks between depth samples
)

var (
	depthOnce  sync.Once
	queueDepth *prometheus.GaugeVec
)

func depthGauge() *prometheus.GaugeVec {
	depthOnce.Do(func() {
		queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stockbrain_queue_messages",
			Help: "Redis queue messages by state (pending, retrying, dead)",
		}, []string{"state"})
	})
	return queueDepth
}

// promoteDue atomically moves due retries from the retry set back onto the
// message list, so several instances never promote one message twice.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// RedisQueue keeps messages in a Redis list shared by every instance using the
// same key prefix. Failed messages wait in a sorted set scored by retry time
// and land on a capped dead letter list once RetryLimit is exhausted.
type RedisQueue struct {
	logger *logger.Logger
	config *QueueConfig
	client *redis.Client
	prefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix namespaces the queue keys, default "stockbrain:queue".
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	r := &RedisQueue{
		logger: lgr,
		config: config.withDefaults(),
		client: client,
		prefix: "stockbrain:queue",
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.Type()]; ok {
		r.logger.Warn("job already registered", logger.String("type", job.Type()))
		return
	}
	r.jobs[job.Type()] = job
}

func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis queue ping: %w", err)
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.running = true
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.promoter()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("prefix", r.prefix),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels in-flight jobs and waits for the workers. A job interrupted by
// Stop is not requeued.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("redis queue stop: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	_, err := r.EnqueueWithID(ctx, uuid.NewString(), msgType, payload)
	return err
}

// EnqueueWithID pushes a message whose id the caller already handed out, such as a job id.
func (r *RedisQueue) EnqueueWithID(ctx context.Context, id, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !running {
		return "", ErrNotRunning
	}
	if !known {
		return "", fmt.Errorf("no job registered for type: %s", msgType)
	}

	data, err := json.Marshal(Message{ID: id, Type: msgType, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.LPush(ctx, r.key("messages"), data).Err(); err != nil {
		return "", fmt.Errorf("redis queue push: %w", err)
	}
	return id, nil
}

// QueueStats counts messages per state across every instance sharing the prefix.
type QueueStats struct {
	Pending  int64 `json:"pending"`
	Retrying int64 `json:"retrying"`
	Dead     int64 `json:"dead"`
}

func (r *RedisQueue) Stats(ctx context.Context) (QueueStats, error) {
	pipe := r.client.Pipeline()
	pending := pipe.LLen(ctx, r.key("messages"))
	retrying := pipe.ZCard(ctx, r.key("retry"))
	dead := pipe.LLen(ctx, r.key("dlq"))
	if _, err := pipe.Exec(ctx); err != nil {
		return QueueStats{}, fmt.Errorf("redis queue stats: %w", err)
	}
	return QueueStats{Pending: pending.Val(), Retrying: retrying.Val(), Dead: dead.Val()}, nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, time.Second, r.key("messages")).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), r.ctx.Err() != nil:
			continue
		default:
			r.logger.Error("redis queue pop failed", logger.Int("worker_id", id), logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-r.ctx.Done():
			}
			continue
		}

		var wm wireMessage
		if err := json.Unmarshal([]byte(res[1]), &wm); err != nil {
			r.logger.Error("redis queue message undecodable", logger.Error(err))
			continue
		}
		r.process(wm.message())
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job registered", logger.String("type", msg.Type), logger.String("id", msg.ID))
		r.bury(msg)
		return
	}

	start := time.Now()
	err := runAttempt(r.ctx, job, msg, r.config.JobTimeout)
	if err == nil {
		r.logger.Debug("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("took", time.Since(start)))
		return
	}

	msg.LastError = err.Error()
	r.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	switch {
	case r.ctx.Err() != nil:
		// shutting down; see Stop
	case !retryable(r.ctx, err) || msg.Attempts >= r.config.RetryLimit:
		r.bury(msg)
	default:
		msg.Attempts++
		r.scheduleRetry(msg, time.Now().Add(r.config.retryDelay(msg.Attempts)))
	}
}

func (r *RedisQueue) scheduleRetry(msg Message, at time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode retry", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.ZAdd(ctx, r.key("retry"), redis.Z{Score: float64(at.UnixMilli()), Member: data}).Err(); err != nil {
		r.logger.Error("schedule retry failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

// bury parks msg on the dead letter list.
func (r *RedisQueue) bury(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode dead letter", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key("dlq"), data)
	pipe.LTrim(ctx, r.key("dlq"), 0, deadLetterCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("dead letter push failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (r *RedisQueue) promoter() {
	defer r.wg.Done()
	t := time.NewTicker(promoteInterval)
	defer t.Stop()
	gauge := depthGauge()
	for tick := 0; ; tick++ {
		select {
		case <-r.ctx.Done():
			return
		case now := <-t.C:
			if tick%statsEvery == 0 {
				if st, err := r.Stats(r.ctx); err == nil {
					gauge.WithLabelValues("pending").Set(float64(st.Pending))
					gauge.WithLabelValues("retrying").Set(float64(st.Retrying))
					gauge.WithLabelValues("dead").Set(float64(st.Dead))
				}
			}
			n, err := promoteDue.Run(r.ctx, r.client,
				[]string{r.key("retry"), r.key("messages")},
				strconv.FormatInt(now.UnixMilli(), 10), promoteBatch,
			).Int()
			if err != nil && r.ctx.Err() == nil {
				r.logger.Error("retry promotion failed", logger.Error(err))
				continue
			}
			if n > 0 {
				r.logger.Debug("retries promoted", logger.Int("count", n))
			}
		}
	}
}

func (r *RedisQueue) key(name string) string {
	return r.prefix + ":" + name
}
