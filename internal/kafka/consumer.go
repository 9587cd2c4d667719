package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

type Consumer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type HandlerFunc func(ctx context.Context, msg kafka.Message) error

type kafkaConsumer struct {
	reader         *kafka.Reader
	metrics        *prometheus.HistogramVec
	numWorkers     int
	consumeTimeout time.Duration
	handler        HandlerFunc
	cancel         context.CancelFunc
	done           chan struct{}
	workerPool     *workerpool.WorkerPool
}

// NewConsumer reads the events topic. With a single worker messages are
// handled and committed in partition order.
func NewConsumer(cfg config.KafkaConfig, handler HandlerFunc) (Consumer, error) {
	if !cfg.Enabled {
		return &noopConsumer{}, nil
	}

	metrics, err := util.GetHistogramVec("kafka_events_consumed", "code", "topic", "group")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}

	readerConfig := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.EventsTopic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
	}

	return &kafkaConsumer{
		reader:         kafka.NewReader(readerConfig),
		metrics:        metrics,
		numWorkers:     cfg.NumWorkers,
		consumeTimeout: cfg.ConsumeTimeout,
		handler:        handler,
		done:           make(chan struct{}),
		workerPool:     workerpool.New(cfg.NumWorkers),
	}, nil
}

// Start launches the fetch loop and returns immediately.
func (c *kafkaConsumer) Start(ctx context.Context) error {
	log.Infof(ctx, "Starting kafka consumer for topic: %s", c.reader.Config().Topic)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	go func() {
		defer close(c.done)
		if c.numWorkers == 1 {
			c.startSingleWorker(runCtx)
			return
		}
		c.startMultiWorker(runCtx)
	}()
	return nil
}

func (c *kafkaConsumer) Stop(ctx context.Context) error {
	log.Infof(ctx, "Stopping kafka consumer")
	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
		}
	}
	c.workerPool.StopWait()
	return c.reader.Close()
}

func (c *kafkaConsumer) startSingleWorker(ctx context.Context) {
	groupID := c.reader.Config().GroupID
	for ctx.Err() == nil {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Errorw(ctx, "Error fetching message", "error", err)
			continue
		}

		c.processMessage(ctx, msg, groupID)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Errorw(ctx, "Failed to commit message", "error", err)
		}
	}
}

func (c *kafkaConsumer) startMultiWorker(ctx context.Context) {
	groupID := c.reader.Config().GroupID
	for ctx.Err() == nil {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Errorw(ctx, "Error reading message", "error", err)
			continue
		}

		c.workerPool.Submit(func() {
			c.processMessage(ctx, msg, groupID)
		})
	}
}

func (c *kafkaConsumer) processMessage(ctx context.Context, msg kafka.Message, groupID string) {
	start := time.Now()
	lagMs := start.Sub(msg.Time).Milliseconds()

	duration, err := c.handle(ctx, msg)

	code := getCode(err)
	content := "success"
	if err != nil {
		content = err.Error()
	}

	log.Logw(ctx, getLogLevel(code), content,
		"code", code,
		"duration_ms", duration.Milliseconds(),
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"lag_ms", lagMs,
		"key", string(msg.Key),
		"value", json.RawMessage(msg.Value),
	)

	c.metrics.
		WithLabelValues(code.String(), msg.Topic, groupID).
		Observe(duration.Seconds())
}

func (c *kafkaConsumer) handle(msgCtx context.Context, msg kafka.Message) (duration time.Duration, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PANIC RECOVER: %+v", r)
		}
		duration = time.Since(start)
	}()

	ctx, cancel := context.WithTimeout(msgCtx, c.consumeTimeout)
	defer cancel()
	return 0, c.handler(ctx, msg)
}

func getCode(err error) codes.Code {
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	return models.Code(err)
}

type noopConsumer struct{}

func (n *noopConsumer) Start(ctx context.Context) error {
	log.Infof(ctx, "Kafka consumer is disabled")
	return nil
}

func (n *noopConsumer) Stop(context.Context) error {
	return nil
}

func getLogLevel(code codes.Code) zapcore.Level {
	switch code {
	case codes.OK:
		return zapcore.InfoLevel
	case codes.Canceled,
		codes.InvalidArgument,
		codes.NotFound,
		codes.AlreadyExists,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.ResourceExhausted,
		codes.FailedPrecondition,
		codes.Aborted,
		codes.Unimplemented,
		codes.OutOfRange:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
