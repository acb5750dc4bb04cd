package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventHandler processes one event. An error asks for redelivery.
type EventHandler func(ctx context.Context, event events.Event) error

// Subscriber reads the EVENTS stream through durable consumers.
type Subscriber struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, log: log}, nil
}

// Subscribe attaches handler to subject through the durable consumer, so a
// restarted reader resumes where it stopped.
func (s *Subscriber) Subscribe(ctx context.Context, subject, durableName string, handler EventHandler) error {
	consumer, err := s.js.CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       durableName,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", durableName, err)
	}

	_, err = consumer.Consume(func(msg jetstream.Msg) {
		s.handle(ctx, msg, handler)
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", subject, err)
	}

	s.log.Info("NATS", "Subscribed", map[string]interface{}{"subject": subject, "durable": durableName})
	return nil
}

func (s *Subscriber) handle(ctx context.Context, msg jetstream.Msg, handler EventHandler) {
	event, err := decode(msg.Subject(), msg.Data())
	if err != nil {
		s.log.Error("NATS", "Terminating undecodable message", map[string]interface{}{
			"subject": msg.Subject(),
			"error":   err.Error(),
		})
		// redelivery cannot fix the payload
		_ = msg.Term()
		return
	}

	if err := handler(ctx, event); err != nil {
		s.log.Warn("NATS", "Handler failed, requesting redelivery", map[string]interface{}{
			"subject": msg.Subject(),
			"error":   err.Error(),
		})
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

// decode reads the envelope written by Publisher. Bare payload maps from
// older publishers fall back to the subject for their type.
func decode(subject string, data []byte) (events.BaseEvent, error) {
	if event, err := events.Unmarshal(data); err == nil {
		return event, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return events.BaseEvent{}, err
	}
	return events.BaseEvent{
		Type:       eventTypeOf(subject),
		Data:       payload,
		OccurredAt: time.Now(),
	}, nil
}

func (s *Subscriber) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}
