package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"StockBrain/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Permanent marks a handler error that retrying cannot fix, such as a payload
// that does not decode. The message goes straight to the DLQ.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Consumer reads every registered topic in one consumer group. Messages are
// fetched, handled with retries, then committed. Each partition is pinned to
// one worker so a partition is processed in order.
type Consumer struct {
	cfg      *ConsumerConfig
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	workers  []chan fetched
	dlq      *kafka.Writer
	hook     ConsumerHook
	l        *logger.Logger
	metrics  *clientMetrics

	ctx      context.Context
	cancel   context.CancelFunc
	fetchWG  sync.WaitGroup
	workWG   sync.WaitGroup
	stopOnce sync.Once
}

type fetched struct {
	handler MessageHandler
	reader  *kafka.Reader
	km      kafka.Message
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     NoopHook{},
		l:        logger.NewNop(),
		metrics:  clientMetricsFor(),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.Hash{}}
	}
	return c, nil
}

// RegisterHandler must be called before Start. A second handler for a topic is ignored.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.l.Warn("kafka handler already registered", logger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// WithConsumerHook replaces the no-op hook.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) SetLogger(l *logger.Logger) {
	if l != nil {
		c.l = l
	}
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka: no handlers registered")
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.workers = make([]chan fetched, c.cfg.WorkerCount)
	for i := range c.workers {
		ch := make(chan fetched, c.cfg.BufferSize)
		c.workers[i] = ch
		c.workWG.Add(1)
		go c.work(strconv.Itoa(i), ch)
	}

	for topic, h := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			GroupID:     c.cfg.GroupID,
			Topic:       topic,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: startOffset(c.cfg.AutoOffsetReset),
		})
		c.readers[topic] = r
		c.fetchWG.Add(1)
		go c.fetch(h, r)
	}

	c.l.Info("kafka consumer started",
		logger.String("group", c.cfg.GroupID),
		logger.Int("topics", len(c.readers)),
		logger.Int("workers", c.cfg.WorkerCount),
	)
	return nil
}

// Stop stops fetching, lets workers drain what was already fetched, then
// closes the readers. It returns ctx's error if draining outlives ctx.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			return
		}
		c.cancel()
		c.fetchWG.Wait()
		for _, ch := range c.workers {
			close(ch)
		}

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka: waiting for workers: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.l.Warn("kafka reader close failed", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.l.Warn("kafka dlq close failed", logger.Error(cerr))
			}
		}
		c.l.Info("kafka consumer stopped")
	})
	return err
}

func (c *Consumer) fetch(h MessageHandler, r *kafka.Reader) {
	defer c.fetchWG.Done()
	for {
		km, err := r.FetchMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.l.Warn("kafka fetch failed", logger.String("topic", h.Topic()), logger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMax):
				continue
			case <-c.ctx.Done():
				return
			}
		}

		idx := workerFor(km.Partition, len(c.workers))
		select {
		case c.workers[idx] <- fetched{handler: h, reader: r, km: km}:
			c.metrics.backlog.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(c.workers[idx])))
		case <-c.ctx.Done():
			return
		}
	}
}

func workerFor(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

func (c *Consumer) work(id string, in <-chan fetched) {
	defer c.workWG.Done()
	for f := range in {
		c.metrics.backlog.WithLabelValues(id).Set(float64(len(in)))
		c.process(f)
	}
}

// process retries the handler, falls back to the DLQ, and commits unless the
// message was neither handled nor parked.
func (c *Consumer) process(f fetched) {
	topic := f.handler.Topic()
	start := time.Now()
	defer func() {
		c.metrics.handleTime.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	err := c.handleWithRetry(f)
	if err != nil && c.ctx.Err() != nil && errors.Is(err, context.Canceled) {
		// shutting down mid-retry; leave it for the next owner of the partition
		return
	}
	outcome := "ok"
	if err != nil {
		c.l.Error("kafka message failed",
			logger.String("topic", topic),
			logger.Int("partition", f.km.Partition),
			logger.Int64("offset", f.km.Offset),
			logger.Error(err),
		)
		outcome = "dropped"
		if c.dlq != nil {
			if derr := c.toDLQ(f.km, err); derr != nil {
				c.l.Error("kafka dlq write failed", logger.String("dlq", c.cfg.DLQTopic), logger.Error(derr))
				c.metrics.consumed.WithLabelValues(topic, "dropped").Inc()
				return
			}
			outcome = "dlq"
		}
	}
	c.metrics.consumed.WithLabelValues(topic, outcome).Inc()

	if outcome == "dropped" {
		// left uncommitted; redelivered after a rebalance or restart
		return
	}
	if cerr := c.commit(f.reader, f.km); cerr != nil {
		c.l.Error("kafka commit failed", logger.String("topic", topic), logger.Int64("offset", f.km.Offset), logger.Error(cerr))
	}
}

func (c *Consumer) handleWithRetry(f fetched) error {
	topic := f.handler.Topic()
	op := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = backoff.Permanent(&HookError{Code: "ERR_PANIC", Err: fmt.Errorf("handler panic: %v", r)})
			}
		}()
		ctx, km, data, err := c.hook.BeforeHandle(context.Background(), topic, f.km, f.km.Value)
		if err != nil {
			return backoff.Permanent(err)
		}
		err = f.handler.Handle(ctx, data)
		c.hook.AfterHandle(ctx, topic, km, data, err)
		return err
	}
	notify := func(err error, _ time.Duration) {
		c.hook.OnError(context.Background(), topic, f.km, f.km.Value, err)
	}
	return backoff.RetryNotify(op, c.retryPolicy(), notify)
}

func (c *Consumer) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffMin
	b.MaxInterval = c.cfg.BackoffMax
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = b
	if c.cfg.RetryMax >= 0 {
		policy = backoff.WithMaxRetries(b, uint64(c.cfg.RetryMax))
	}
	return backoff.WithContext(policy, c.ctx)
}

func (c *Consumer) toDLQ(km kafka.Message, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	headers := append([]kafka.Header{
		{Key: "source_topic", Value: []byte(km.Topic)},
		{Key: "source_partition", Value: []byte(strconv.Itoa(km.Partition))},
		{Key: "source_offset", Value: []byte(strconv.FormatInt(km.Offset, 10))},
		{Key: "error", Value: []byte(cause.Error())},
	}, km.Headers...)
	return c.dlq.WriteMessages(ctx, kafka.Message{Key: km.Key, Value: km.Value, Headers: headers})
}

func (c *Consumer) commit(r *kafka.Reader, km kafka.Message) error {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(100*time.Millisecond), 2)
	return backoff.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return r.CommitMessages(ctx, km)
	}, b)
}

func startOffset(reset string) int64 {
	if reset == "latest" {
		return kafka.LastOffset
	}
	return kafka.FirstOffset
}
