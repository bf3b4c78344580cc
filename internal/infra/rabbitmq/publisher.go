package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-session-service/internal/event"
)

const DefaultExchange = "quiz.sessions"

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher forwards session events to a topic exchange, routed by event name.
// With an empty URL it is disabled and drops every event.
type Publisher struct {
	conn     *amqp.Connection
	exchange string
	enabled  bool

	mu sync.Mutex
	ch channel
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if url == "" {
		slog.Warn("rabbitmq: url is empty, event publishing is disabled")
		return &Publisher{exchange: exchange}, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	slog.Info("rabbitmq: publisher ready", "exchange", exchange)
	return &Publisher{conn: conn, ch: ch, exchange: exchange, enabled: true}, nil
}

// Handle is an event.Handler publishing e as JSON.
func (p *Publisher) Handle(ctx context.Context, e event.Event) error {
	if !p.enabled {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.Name(), err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, e.Name(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         e.Name(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Name(), err)
	}
	return nil
}

// SubscribeTo registers the publisher on bus for every named event.
func (p *Publisher) SubscribeTo(bus *event.Bus, names ...string) {
	for _, name := range names {
		bus.Subscribe(name, p.Handle)
	}
}

func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	if err := p.ch.Close(); err != nil {
		slog.Warn("rabbitmq: close channel failed", "error", err)
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}
