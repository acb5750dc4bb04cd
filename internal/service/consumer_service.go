package service

import (
	"context"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder receives events after they leave the in-process bus.
// *nats.Publisher satisfies it.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

const (
	maxForwardAttempts = 3
	forwardBackoff     = 200 * time.Millisecond
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	log        logger.ILogger
	backoff    time.Duration
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		log:        log,
		backoff:    forwardBackoff,
	}
}

// Consume subscribes to the topic and processes messages until ctx is done
// or the subscriber closes.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	for msg := range messages {
		cs.processMessage(ctx, msg)
	}
	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.log.Error("EVENTS", "Dropping undecodable message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	fields := map[string]interface{}{
		"event_type": event.EventType(),
		"plan_id":    event.Payload()["plan_id"],
	}

	if cs.forwarder == nil {
		cs.log.Info("EVENTS", "Event recorded", fields)
		msg.Ack()
		return
	}

	if err := cs.forward(ctx, event); err != nil {
		// the in-process bus redelivers a nack immediately; retries live in forward
		fields["error"] = err.Error()
		cs.log.Error("EVENTS", "Dropping event after failed forwards", fields)
		msg.Ack()
		return
	}

	cs.log.Debug("EVENTS", "Event forwarded", fields)
	msg.Ack()
}

func (cs *consumerService) forward(ctx context.Context, event events.Event) error {
	var err error
	for attempt := 1; attempt <= maxForwardAttempts; attempt++ {
		if err = cs.forwarder.Publish(ctx, event); err == nil {
			return nil
		}
		if attempt == maxForwardAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cs.backoff):
		}
	}
	return err
}
