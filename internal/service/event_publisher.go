package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/prohmpiriya/storefront/pkg/telemetry"
	"github.com/twmb/franz-go/pkg/kgo"
)

// EventPublisher defines the interface for publishing cart lifecycle events
type EventPublisher interface {
	// PublishCartUpdated publishes a cart updated event
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error

	// PublishCartConfirmed publishes a cart confirmed event
	PublishCartConfirmed(ctx context.Context, cart *domain.Cart) error

	// PublishCartDeleted publishes a cart deleted event
	PublishCartDeleted(ctx context.Context, cart *domain.Cart) error

	// Close closes the event publisher
	Close() error
}

// producer is the slice of *kgo.Client the publisher uses
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    producer
	topic       string
	serviceName string
	now         func() time.Time
}

// NewKafkaEventPublisher creates a new Kafka event publisher and checks broker reachability
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "storefront-producer"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerLinger(10*time.Millisecond),
		kgo.RecordRetries(3),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach kafka brokers: %w", err)
	}

	return newKafkaEventPublisher(client, cfg.Topic, cfg.ServiceName), nil
}

func newKafkaEventPublisher(p producer, topic, serviceName string) *KafkaEventPublisher {
	if topic == "" {
		topic = "cart-events"
	}
	if serviceName == "" {
		serviceName = "storefront"
	}
	return &KafkaEventPublisher{producer: p, topic: topic, serviceName: serviceName, now: time.Now}
}

// PublishCartUpdated publishes a cart updated event
func (p *KafkaEventPublisher) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return p.publishEvent(ctx, domain.CartEventUpdated, cart)
}

// PublishCartConfirmed publishes a cart confirmed event
func (p *KafkaEventPublisher) PublishCartConfirmed(ctx context.Context, cart *domain.Cart) error {
	return p.publishEvent(ctx, domain.CartEventConfirmed, cart)
}

// PublishCartDeleted publishes a cart deleted event
func (p *KafkaEventPublisher) PublishCartDeleted(ctx context.Context, cart *domain.Cart) error {
	return p.publishEvent(ctx, domain.CartEventDeleted, cart)
}

// Close flushes and closes the producer
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publishEvent publishes a cart event keyed by user id, so one user's events stay ordered
func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.CartEventType, cart *domain.Cart) error {
	eventID := uuid.New().String()
	event := domain.NewCartEvent(eventID, eventType, cart, p.now())

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := []kgo.RecordHeader{
		{Key: "event_type", Value: []byte(eventType)},
		{Key: "event_id", Value: []byte(eventID)},
		{Key: "source", Value: []byte(p.serviceName)},
		{Key: "content_type", Value: []byte("application/json")},
	}
	for k, v := range telemetry.InjectMap(ctx) {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(cart.UserID),
		Value:     value,
		Headers:   headers,
		Timestamp: event.OccurredAt,
	}

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return nil
}

func (p *NoOpEventPublisher) PublishCartConfirmed(ctx context.Context, cart *domain.Cart) error {
	return nil
}

func (p *NoOpEventPublisher) PublishCartDeleted(ctx context.Context, cart *domain.Cart) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
