package event

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Sink receives every published envelope
type Sink interface {
	Deliver(ctx context.Context, env Envelope, raw []byte) error
}

// Broadcaster is satisfied by *ws.Hub
type Broadcaster interface {
	Send(message []byte) bool
}

// Bus fans events out to its sinks. A Bus with no sinks only logs.
type Bus struct {
	producer string
	sinks    []Sink
	logger   *zap.Logger
}

func NewBus(producer string, logger *zap.Logger, sinks ...Sink) *Bus {
	return &Bus{producer: producer, sinks: sinks, logger: logger.Named("event")}
}

// Publish never fails the caller; delivery errors are logged
func (b *Bus) Publish(ctx context.Context, eventType, key string, actor *Actor, message string, payload interface{}) {
	env, err := NewEnvelope(b.producer, eventType, key, actor, message, payload)
	if err != nil {
		b.logger.Error("failed to encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		b.logger.Error("failed to encode envelope", zap.String("type", eventType), zap.Error(err))
		return
	}

	for _, sink := range b.sinks {
		if err := sink.Deliver(ctx, env, raw); err != nil {
			b.logger.Warn("event delivery failed",
				zap.String("type", eventType),
				zap.String("event_id", env.EventID),
				zap.Error(err))
		}
	}
	b.logger.Debug("event published", zap.String("type", eventType), zap.String("key", key))
}

// HubSink pushes envelopes to websocket clients
type HubSink struct {
	hub Broadcaster
}

func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Deliver(_ context.Context, _ Envelope, raw []byte) error {
	s.hub.Send(raw)
	return nil
}
