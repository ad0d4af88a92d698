package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alumni-connect/apiserver/config"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open connects to the broker named by cfg.Backend. An empty backend returns
// nil and no error.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "pubsub":
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Event types emitted by the API.
const (
	EventUserRegistered      = "user.registered"
	EventMessageSent         = "message.sent"
	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventMentorshipRequested = "mentorship.requested"
	EventApplicationReceived = "application.submitted"
	EventApplicationStatus   = "application.status_changed"
	EventWebinarRegistered   = "webinar.registered"
)

const attrEventType = "event_type"

// Event is a domain notification. RecipientID is the user who should hear about it.
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	ActorID     int64             `json:"actor_id"`
	RecipientID int64             `json:"recipient_id,omitempty"`
	SubjectID   int64             `json:"subject_id,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// PublishObserver counts publish attempts.
type PublishObserver interface {
	ObserveEvent(eventType string, err error)
}

// Publisher serializes events onto a single channel. A nil *Publisher drops
// every event.
type Publisher struct {
	backend  Backend
	channel  string
	log      logrus.FieldLogger
	observer PublishObserver
	now      func() time.Time
}

// NewPublisher returns nil when backend is nil.
func NewPublisher(backend Backend, channel string, log logrus.FieldLogger, observer PublishObserver) *Publisher {
	if backend == nil {
		return nil
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		backend:  backend,
		channel:  channel,
		log:      log,
		observer: observer,
		now:      time.Now,
	}
}

// Publish sends event. Failures are logged and counted but never returned, so
// a broker outage does not fail the request that produced the event.
func (p *Publisher) Publish(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}

	err := p.send(ctx, event)
	if p.observer != nil {
		p.observer.ObserveEvent(event.Type, err)
	}
	if err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"event_id":   event.ID,
		}).Warn("event publish failed")
	}
}

func (p *Publisher) send(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = p.backend.Publish(ctx, p.channel, data, map[string]string{attrEventType: event.Type})
	return err
}

// Consume subscribes to channel and decodes each message into an Event.
// Undecodable messages are acknowledged and skipped.
func Consume(ctx context.Context, backend Backend, channel string, log logrus.FieldLogger, handle func(context.Context, Event) error) error {
	return backend.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			log.WithError(err).WithField("message_id", msg.ID).Warn("dropping malformed event")
			return nil
		}
		return handle(ctx, event)
	})
}
