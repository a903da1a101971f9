// Package events mirrors the in-process change feed onto RabbitMQ so other
// services (mail, analytics, mobile push) can react to record changes
// without polling. The bridge is optional; without a broker URL the app
// runs on the in-process feed alone.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/cartshare/cartshare/internal/cartshare/notify"
	"github.com/cartshare/cartshare/pkg/slogx"
)

// Publisher owns the AMQP connection and a topic exchange. Record keys map
// onto routing keys ("groups/abc" -> "groups.abc"), so consumers bind with
// patterns like "groups.#" or "users.#".
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish sends one record event under its routing key.
func (p *Publisher) Publish(ctx context.Context, event RecordEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey(event.Key),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func routingKey(recordKey string) string {
	return strings.ReplaceAll(recordKey, "/", ".")
}

// Bridge taps the in-process notifier and relays change notices to the
// publisher from its own goroutine. The tap runs on the writer's hot path,
// so it only enqueues; when the queue is full the event is dropped with a
// warning rather than stalling a commit.
type Bridge struct {
	pub   *Publisher
	queue chan RecordEvent
	log   *slog.Logger
}

func NewBridge(pub *Publisher, log *slog.Logger) *Bridge {
	return &Bridge{
		pub:   pub,
		queue: make(chan RecordEvent, 256),
		log:   log,
	}
}

// Attach registers the bridge on the notifier's change feed.
func (b *Bridge) Attach(n *notify.Notifier) {
	n.Tap(func(key string, _ any) {
		select {
		case b.queue <- NewRecordEvent(key):
		default:
			b.log.Warn("event queue full, dropping change notice",
				slog.String("key", key),
			)
		}
	})
}

// Run drains the queue until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.pump(ctx) })
	return g.Wait()
}

func (b *Bridge) pump(ctx context.Context) error {
	log := slogx.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-b.queue:
			if err := b.pub.Publish(ctx, event); err != nil {
				log.Error("failed to publish record event",
					slog.String("key", event.Key),
					slog.Any("error", err),
				)
			}
		}
	}
}
