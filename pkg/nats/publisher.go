package nats

import (
	"context"
	"fmt"
	"time"

	"ai-lifeplan-be/internal/pkg/logger"
	"ai-lifeplan-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher forwards domain events to the EVENTS stream.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := js.CreateOrUpdateStream(ctx, streamConfig()); err != nil {
		// publishing still works when an operator manages the stream
		log.Warn("NATS", "Failed to ensure stream", map[string]interface{}{
			"stream": StreamName,
			"error":  err.Error(),
		})
	}

	return &Publisher{nc: nc, js: js, log: log}, nil
}

// Publish writes the event envelope to events.<type>.
func (p *Publisher) Publish(ctx context.Context, event events.Event) error {
	data, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}

	subject := Subject(event.EventType())
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID(event)))
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	if ack.Duplicate {
		p.log.Debug("NATS", "Duplicate event ignored by stream", map[string]interface{}{
			"subject":  subject,
			"sequence": ack.Sequence,
		})
	}
	return nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
