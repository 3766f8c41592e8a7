package service

import (
	"context"

	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/websocket"
	"atomics-registration-be/pkg/events"
	pktNats "atomics-registration-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

const notificationModule = "NotificationService"

// FeedDelivery pushes a frame to every connected admin. Implemented by the websocket hub.
type FeedDelivery interface {
	Broadcast(msg websocket.FeedMessage)
}

// EventSource is the NATS side of the bus.
type EventSource interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// NotificationService relays registration events to the admin live feed. With NATS it uses
// one durable consumer and the hub relays to the other instances; without NATS it listens
// on the in-process bus.
type NotificationService struct {
	source    EventSource
	local     message.Subscriber
	topicName string
	delivery  FeedDelivery
	logger    logger.ILogger
}

func NewNotificationService(source EventSource, local message.Subscriber, topicName string, delivery FeedDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		source:    source,
		local:     local,
		topicName: topicName,
		delivery:  delivery,
		logger:    log,
	}
}

func (s *NotificationService) Start(ctx context.Context) error {
	if s.source != nil {
		subject := pktNats.SubjectPrefix + ".>"
		if err := s.source.Subscribe(ctx, subject, "admin-feed-worker", s.handleEvent); err != nil {
			return err
		}
		s.logger.Info(notificationModule, "Admin feed listening on "+subject, nil)
		return nil
	}

	messages, err := s.local.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			evt, err := decodeEvent(msg.Payload)
			if err == nil {
				_ = s.handleEvent(ctx, evt)
			}
			msg.Ack()
		}
	}()
	s.logger.Info(notificationModule, "Admin feed listening on in-process bus", nil)
	return nil
}

func (s *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	s.logger.Info(notificationModule, "Delivering "+event.EventType(), map[string]interface{}{
		"event_id": event.EventID(),
	})
	s.delivery.Broadcast(websocket.FeedMessage{
		Type: event.EventType(),
		Data: events.BaseEvent{
			ID:         event.EventID(),
			Type:       event.EventType(),
			Data:       event.Payload(),
			OccurredAt: event.Timestamp(),
		},
	})
	return nil
}
