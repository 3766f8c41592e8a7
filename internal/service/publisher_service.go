package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"atomics-registration-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// RegistrationEventsTopic is the in-process topic the mail consumer and the feed listen on.
const RegistrationEventsTopic = "registration_events"

// IPublisherService fans a domain event out to the in-process bus and, when connected,
// to NATS JetStream.
type IPublisherService interface {
	Publish(ctx context.Context, evt events.Event) error
}

// EventStream is the subset of the NATS publisher used here.
type EventStream interface {
	Publish(ctx context.Context, event events.Event) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	stream    EventStream
}

func NewPublisherService(topicName string, publisher message.Publisher, stream EventStream) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		stream:    stream,
	}
}

func encodeEvent(evt events.Event) ([]byte, error) {
	return json.Marshal(events.BaseEvent{
		ID:         evt.EventID(),
		Type:       evt.EventType(),
		Data:       evt.Payload(),
		OccurredAt: evt.Timestamp(),
	})
}

func decodeEvent(payload []byte) (events.BaseEvent, error) {
	var evt events.BaseEvent
	err := json.Unmarshal(payload, &evt)
	return evt, err
}

func (p *publisherService) Publish(ctx context.Context, evt events.Event) error {
	payload, err := encodeEvent(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_id", evt.EventID())
	msg.Metadata.Set("event_type", evt.EventType())
	msg.SetContext(ctx)

	var errs []error
	if err := p.publisher.Publish(p.topicName, msg); err != nil {
		errs = append(errs, fmt.Errorf("local bus: %w", err))
	}
	if p.stream != nil {
		if err := p.stream.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("nats: %w", err))
		}
	}
	return errors.Join(errs...)
}
