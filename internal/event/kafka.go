package event

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrProducerClosed = errors.New("kafka producer closed")

// messageWriter is the part of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer buffers envelopes and writes them from a single goroutine
type KafkaProducer struct {
	w       messageWriter
	inbox   chan kafka.Message
	closeCh chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

func NewKafkaProducer(brokers []string, topic string, buf int, logger *zap.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaProducer(w, buf, logger)
}

func newKafkaProducer(w messageWriter, buf int, logger *zap.Logger) *KafkaProducer {
	if buf <= 0 {
		buf = 1
	}
	return &KafkaProducer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		logger:  logger.Named("kafka"),
	}
}

// Start runs the write loop until Close is called
func (p *KafkaProducer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.logger.Error("failed to write message", zap.ByteString("key", m.Key), zap.Error(err))
			}
		}
		if err := p.w.Close(); err != nil {
			p.logger.Warn("failed to close writer", zap.Error(err))
		}
	}()
}

// Deliver queues the envelope keyed by its aggregate id so one order's events stay ordered
func (p *KafkaProducer) Deliver(ctx context.Context, env Envelope, raw []byte) (err error) {
	defer func() {
		if recover() != nil {
			err = ErrProducerClosed
		}
	}()

	msg := kafka.Message{
		Key:   []byte(env.Key),
		Value: raw,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes queued messages and waits for the writer to stop
func (p *KafkaProducer) Close() {
	p.once.Do(func() { close(p.inbox) })
	<-p.closeCh
}
