package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/config"
)

// Publisher sends ProductEvents to a durable queue.  Each call dials its
// own connection; event volume is one message per product mutation.
type Publisher struct {
	url   string
	queue string
	log   zerolog.Logger
}

func NewPublisher(cfg config.EventsConfig, log zerolog.Logger) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Queue, log: log.With().Str("component", "publisher").Logger()}
}

// Publish delivers ev as a persistent JSON message.  Errors are returned
// unlogged; the caller decides how loudly to report them.
func (p *Publisher) Publish(ctx context.Context, ev ProductEvent) error {
	if err := p.publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug().Str("event", ev.Type).Uint64("product_id", ev.ProductID).Msg("event published")
	return nil
}

func (p *Publisher) publish(ctx context.Context, ev ProductEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	})
}
