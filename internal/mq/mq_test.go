package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alumni-connect/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakeBackend struct {
	sent       []published
	publishErr error
	inbox      []Message
	handled    []error
}

func (f *fakeBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.sent = append(f.sent, published{channel: channel, data: data, attrs: attrs})
	return "msg-1", nil
}

func (f *fakeBackend) Subscribe(ctx context.Context, _ string, handler Handler) error {
	for _, msg := range f.inbox {
		f.handled = append(f.handled, handler(ctx, msg))
	}
	return nil
}

func (f *fakeBackend) Close() error { return nil }

type countingObserver struct {
	ok, failed int
}

func (c *countingObserver) ObserveEvent(_ string, err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestPublisherEncodesEvent(t *testing.T) {
	backend := &fakeBackend{}
	logger, _ := test.NewNullLogger()
	observer := &countingObserver{}
	pub := NewPublisher(backend, "alumni.events", logger, observer)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	pub.Publish(context.Background(), Event{Type: EventMessageSent, ActorID: 1, RecipientID: 2, SubjectID: 9})

	require.Len(t, backend.sent, 1)
	sent := backend.sent[0]
	assert.Equal(t, "alumni.events", sent.channel)
	assert.Equal(t, EventMessageSent, sent.attrs[attrEventType])

	var event Event
	require.NoError(t, json.Unmarshal(sent.data, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, int64(2), event.RecipientID)
	assert.True(t, fixed.Equal(event.OccurredAt))
	assert.Equal(t, 1, observer.ok)
}

func TestPublisherSwallowsBrokerErrors(t *testing.T) {
	backend := &fakeBackend{publishErr: errors.New("connection reset")}
	logger, hook := test.NewNullLogger()
	observer := &countingObserver{}
	pub := NewPublisher(backend, "alumni.events", logger, observer)

	pub.Publish(context.Background(), Event{Type: EventUserRegistered, ActorID: 3})

	assert.Equal(t, 1, observer.failed)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "event publish failed", hook.LastEntry().Message)
	assert.Equal(t, EventUserRegistered, hook.LastEntry().Data["event_type"])
}

func TestNilPublisherDrops(t *testing.T) {
	pub := NewPublisher(nil, "alumni.events", nil, nil)
	assert.Nil(t, pub)
	assert.NotPanics(t, func() {
		pub.Publish(context.Background(), Event{Type: EventUserRegistered})
	})
}

func TestConsumeDecodesAndSkipsMalformed(t *testing.T) {
	good, err := json.Marshal(Event{ID: "e1", Type: EventWebinarRegistered, ActorID: 5})
	require.NoError(t, err)
	backend := &fakeBackend{inbox: []Message{
		{ID: "1", Data: []byte("{not json")},
		{ID: "2", Data: good},
	}}
	logger, hook := test.NewNullLogger()

	var got []Event
	err = Consume(context.Background(), backend, "alumni.events", logger, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, []error{nil, nil}, backend.handled)
	assert.Len(t, hook.AllEntries(), 1)
}

func TestOpenUnknownBackend(t *testing.T) {
	backend, err := Open(context.Background(), config.MQConfig{})
	require.NoError(t, err)
	assert.Nil(t, backend)

	_, err = Open(context.Background(), config.MQConfig{Backend: "kafka"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.MQConfig{Backend: "pubsub"})
	assert.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(amqp.Table{
		"event_type": "message.sent",
		"raw":        []byte("bytes"),
		"count":      int32(3),
	})
	assert.Equal(t, map[string]string{"event_type": "message.sent", "raw": "bytes", "count": "3"}, attrs)
	assert.Nil(t, headersToAttributes(nil))
}
