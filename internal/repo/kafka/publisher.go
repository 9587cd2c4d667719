// Package kafka publishes broadcast events so that other gateway instances
// can re-emit them to their own socket connections.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
)

// Origin identifies this process in published envelopes.
type Origin string

const HeaderOrigin = "origin"

type Publisher interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

type saramaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	origin   Origin
	now      func() time.Time
}

func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "livechat"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

// NewPublisher returns a no-op publisher when kafka is disabled.
func NewPublisher(cfg config.KafkaConfig, origin Origin) (Publisher, error) {
	if !cfg.Enabled {
		return noopPublisher{}, nil
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("init kafka producer: %w", err)
	}
	return newSaramaPublisher(producer, cfg.EventsTopic, origin), nil
}

func newSaramaPublisher(producer sarama.SyncProducer, topic string, origin Origin) *saramaPublisher {
	return &saramaPublisher{
		producer: producer,
		topic:    topic,
		origin:   origin,
		now:      time.Now,
	}
}

func (p *saramaPublisher) Publish(ctx context.Context, event models.Event) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send %s to %s: %w", event.Name, p.topic, err)
	}
	return nil
}

func (p *saramaPublisher) message(event models.Event) (*sarama.ProducerMessage, error) {
	value, err := json.Marshal(models.EventEnvelope{
		Origin:    string(p.origin),
		Name:      event.Name,
		Rooms:     event.Rooms,
		Payload:   event.Payload,
		EmittedAt: p.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.Name, err)
	}

	key := event.Name
	if len(event.Rooms) > 0 {
		key = event.Rooms[0]
	}
	return &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderOrigin), Value: []byte(p.origin)},
		},
	}, nil
}

func (p *saramaPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.Event) error { return nil }
func (noopPublisher) Close() error                                { return nil }
