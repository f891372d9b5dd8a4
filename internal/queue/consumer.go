package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/shop-api/internal/config"
)

const auditFileName = "product-events.log"

// StartConsumer consumes the events queue and appends one audit line per
// event to <LogDir>/product-events.log.  It reconnects with exponential
// backoff and returns only when ctx is cancelled.
func StartConsumer(ctx context.Context, cfg config.EventsConfig, log zerolog.Logger) error {
	log = log.With().Str("component", "event-consumer").Logger()
	f, err := openAuditFile(cfg.LogDir)
	if err != nil {
		return err
	}
	defer f.Close()
	sink := newAuditSink(f)

	backoff := time.Second
	for {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, cfg.Queue, sink, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink *auditSink, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.handle(d.Body); err != nil {
				log.Error().Err(err).Msg("handle message failed")
				// do not requeue: a malformed message would loop forever
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// auditSink renders events as structured lines on an append-only writer.
type auditSink struct {
	log zerolog.Logger
}

func newAuditSink(w io.Writer) *auditSink {
	return &auditSink{log: zerolog.New(w).With().Timestamp().Logger()}
}

func (s *auditSink) handle(body []byte) error {
	var ev ProductEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ProductID == 0 {
		return fmt.Errorf("incomplete event: type=%q product_id=%d", ev.Type, ev.ProductID)
	}
	s.log.Info().
		Str("event", ev.Type).
		Uint64("product_id", ev.ProductID).
		Str("name", ev.Name).
		Str("category", ev.Category).
		Int64("price", ev.Price).
		Int64("stock", ev.Stock).
		Uint64("owner_id", ev.OwnerID).
		Uint64("actor_id", ev.ActorID).
		Str("occurred_at", ev.OccurredAt).
		Msg("product event")
	return nil
}

func openAuditFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, auditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return f, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
