package kafka

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/livechat/internal/config"
	"github.com/nguyentranbao-ct/livechat/internal/models"
	kafkarepo "github.com/nguyentranbao-ct/livechat/internal/repo/kafka"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
)

// Emitter delivers an event to the sockets connected to this instance.
type Emitter interface {
	EmitLocal(name string, rooms []string, payload any) int
}

type relayEnvelope struct {
	Origin  string          `json:"origin"`
	Name    string          `json:"name"`
	Rooms   []string        `json:"rooms"`
	Payload json.RawMessage `json:"payload"`
}

type relay struct {
	origin  kafkarepo.Origin
	emitter Emitter
}

func newRelay(origin kafkarepo.Origin, emitter Emitter) *relay {
	return &relay{origin: origin, emitter: emitter}
}

// handle re-emits events published by other instances. Events carrying this
// instance's origin were already emitted locally and are skipped.
func (r *relay) handle(ctx context.Context, msg kafka.Message) error {
	for _, h := range msg.Headers {
		if h.Key == kafkarepo.HeaderOrigin && string(h.Value) == string(r.origin) {
			return nil
		}
	}

	var env relayEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return models.InvalidArgument("unmarshal event envelope: %v", err)
	}
	if env.Origin == string(r.origin) {
		return nil
	}
	if env.Name == "" {
		return models.InvalidArgument("event envelope without name")
	}

	n := r.emitter.EmitLocal(env.Name, env.Rooms, env.Payload)
	log.Debugw(ctx, "relayed event", "event", env.Name, "origin", env.Origin, "connections", n)
	return nil
}

// StartRelayEvents consumes the events topic for the lifetime of the app.
func StartRelayEvents(lc fx.Lifecycle, conf *config.Config, origin kafkarepo.Origin, emitter Emitter) error {
	if !conf.Kafka.Enabled {
		log.Warnf(context.Background(), "Kafka relay is disabled in configuration")
		return nil
	}
	consumer, err := NewConsumer(conf.Kafka, newRelay(origin, emitter).handle)
	if err != nil {
		return fmt.Errorf("new relay consumer: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: consumer.Start,
		OnStop:  consumer.Stop,
	})
	return nil
}
