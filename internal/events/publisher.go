package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher defines the interface for publishing notification events
type EventPublisher interface {
	PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error
	Close() error
}

// PublisherConfig holds configuration for the event publisher
type PublisherConfig struct {
	KafkaBrokers []string
	TopicName    string
	Logger       *slog.Logger
}

// toMessage encodes an event as a Watermill message with routing metadata.
func toMessage(event *NotificationEvent) (*message.Message, error) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification event: %w", err)
	}

	msg := message.NewMessage(event.ID, eventBytes)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.Metadata.Set("version", event.Version)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))
	return msg, nil
}

// DecodeNotificationEvent reads an event back from a message. Data is left
// as raw JSON for the consumer to decode into the payload type it expects.
func DecodeNotificationEvent(msg *message.Message) (*NotificationEvent, json.RawMessage, error) {
	var envelope struct {
		NotificationEvent
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return nil, nil, fmt.Errorf("failed to decode notification event: %w", err)
	}
	event := envelope.NotificationEvent
	event.Data = nil
	return &event, envelope.Data, nil
}

// KafkaEventPublisher implements EventPublisher using Watermill with Kafka
type KafkaEventPublisher struct {
	publisher message.Publisher
	logger    *slog.Logger
	topicName string
}

// NewKafkaEventPublisher creates a new Kafka-based event publisher using Watermill
func NewKafkaEventPublisher(config PublisherConfig) (*KafkaEventPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   config.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(config.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		logger:    config.Logger,
		topicName: config.TopicName,
	}, nil
}

func (p *KafkaEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	return publish(ctx, p.publisher, p.topicName, p.logger, event)
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// ChannelEventPublisher delivers events in-process over a Watermill Go
// channel pub/sub, so a UI shell can subscribe to toasts directly.
type ChannelEventPublisher struct {
	pubsub    *gochannel.GoChannel
	logger    *slog.Logger
	topicName string
}

func NewChannelEventPublisher(config PublisherConfig) *ChannelEventPublisher {
	return &ChannelEventPublisher{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, watermill.NewSlogLogger(config.Logger)),
		logger:    config.Logger,
		topicName: config.TopicName,
	}
}

func (p *ChannelEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	return publish(ctx, p.pubsub, p.topicName, p.logger, event)
}

// Subscribe returns the stream of messages published after the call.
// Consumers must Ack each message.
func (p *ChannelEventPublisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return p.pubsub.Subscribe(ctx, p.topicName)
}

func (p *ChannelEventPublisher) Close() error {
	return p.pubsub.Close()
}

func publish(ctx context.Context, publisher message.Publisher, topic string, logger *slog.Logger, event *NotificationEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := publisher.Publish(topic, msg); err != nil {
		logger.Error("Failed to publish notification event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return fmt.Errorf("failed to publish notification event: %w", err)
	}

	logger.Debug("Published notification event",
		"event_id", event.ID,
		"event_type", event.Type,
		"topic", topic)
	return nil
}

// MockEventPublisher is a mock implementation for testing
type MockEventPublisher struct {
	mu     sync.Mutex
	Events []NotificationEvent
	Logger *slog.Logger
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		Events: make([]NotificationEvent, 0),
		Logger: logger,
	}
}

// PublishNotificationEvent stores the event in memory (for testing)
func (m *MockEventPublisher) PublishNotificationEvent(ctx context.Context, event *NotificationEvent) error {
	m.mu.Lock()
	m.Events = append(m.Events, *event)
	m.mu.Unlock()
	m.Logger.Debug("Mock: Published notification event",
		"event_id", event.ID,
		"event_type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all published events (for testing)
func (m *MockEventPublisher) GetPublishedEvents() []NotificationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationEvent(nil), m.Events...)
}

// Toasts returns the published toast payloads in order.
func (m *MockEventPublisher) Toasts() []ToastEvent {
	var out []ToastEvent
	for _, e := range m.GetPublishedEvents() {
		if t, ok := e.Data.(ToastEvent); ok {
			out = append(out, t)
		}
	}
	return out
}

// ClearEvents clears all published events (for testing)
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make([]NotificationEvent, 0)
}
