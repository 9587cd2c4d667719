package socket

import (
	"context"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentranbao-ct/livechat/internal/models"
	"github.com/nguyentranbao-ct/livechat/internal/repo/kafka"
	"github.com/nguyentranbao-ct/livechat/pkg/logger/log"
	"github.com/nguyentranbao-ct/livechat/pkg/util"
)

const (
	Namespace      = "/"
	publishTimeout = 5 * time.Second
)

// RoomIterator is the part of *socketio.Server used for fan-out.
type RoomIterator interface {
	ForEach(namespace, room string, f socketio.EachFunc) bool
}

// Broadcaster emits events to local socket connections and relays them
// through kafka to the other gateway instances.
type Broadcaster struct {
	rooms     RoomIterator
	publisher kafka.Publisher
	emitted   *prometheus.CounterVec
}

func NewBroadcaster(server *socketio.Server, publisher kafka.Publisher) (*Broadcaster, error) {
	return newBroadcaster(server, publisher)
}

func newBroadcaster(rooms RoomIterator, publisher kafka.Publisher) (*Broadcaster, error) {
	emitted, err := util.GetCounterVec("chat_events_broadcast_total", "Chat events broadcast by this instance", "event")
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		rooms:     rooms,
		publisher: publisher,
		emitted:   emitted,
	}, nil
}

func (b *Broadcaster) Broadcast(ctx context.Context, event models.Event) {
	n := b.EmitLocal(event.Name, event.Rooms, event.Payload)
	b.emitted.WithLabelValues(event.Name).Inc()
	log.Debugw(ctx, "event broadcast", "event", event.Name, "rooms", event.Rooms, "connections", n)

	pubCtx, cancel := util.NewTimeoutContext(ctx, publishTimeout)
	defer cancel()
	if err := b.publisher.Publish(pubCtx, event); err != nil {
		log.Warnw(ctx, "failed to relay event", "event", event.Name, "error", err)
	}
}

// EmitLocal sends the event once to every local connection that is in at
// least one of rooms and returns how many connections received it.
func (b *Broadcaster) EmitLocal(name string, rooms []string, payload any) int {
	seen := make(map[string]struct{})
	for _, room := range rooms {
		b.rooms.ForEach(Namespace, room, func(conn socketio.Conn) {
			if _, ok := seen[conn.ID()]; ok {
				return
			}
			seen[conn.ID()] = struct{}{}
			conn.Emit(name, payload)
		})
	}
	return len(seen)
}
