package nats

import (
	"fmt"
	"strings"
	"time"

	"ai-lifeplan-be/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName    = "EVENTS"
	SubjectPrefix = "events."
	AllSubjects   = SubjectPrefix + ">"

	streamMaxAge = 7 * 24 * time.Hour
)

// Subject is where an event of eventType is published.
func Subject(eventType string) string {
	return SubjectPrefix + eventType
}

func eventTypeOf(subject string) string {
	return strings.TrimPrefix(subject, SubjectPrefix)
}

func streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{AllSubjects},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    streamMaxAge,
	}
}

func connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return nc, js, nil
}

// msgID is stable for one event, so JetStream drops a re-forwarded copy.
func msgID(event events.Event) string {
	planId, _ := event.Payload()["plan_id"].(string)
	return fmt.Sprintf("%s:%s:%d", event.EventType(), planId, event.Timestamp().UnixNano())
}
