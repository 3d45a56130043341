package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// AMQPQueue decouples notification delivery from request handling. The
// publisher side enqueues after commit; a consumer worker drains the queue
// and hands messages to a delivery Notifier.
type AMQPQueue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     AMQPConfig
	log     *slog.Logger
}

func NewAMQPQueue(cfg AMQPConfig, log *slog.Logger) (*AMQPQueue, error) {
	const op = "notify.NewAMQPQueue"

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := ch.QueueBind(cfg.Queue, "", cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &AMQPQueue{conn: conn, channel: ch, cfg: cfg, log: log}, nil
}

func (q *AMQPQueue) Close() {
	if q.channel != nil {
		_ = q.channel.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
}

// Send publishes the message to the exchange. It satisfies Notifier so
// services stay unaware of the broker.
func (q *AMQPQueue) Send(ctx context.Context, msg Message) error {
	const op = "notify.AMQPQueue.Send"

	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = q.channel.PublishWithContext(ctx, q.cfg.Exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
		Timestamp:   time.Now(),
	})
	if err != nil {
		q.log.Error("publish notification failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Consume drains the queue and delivers each message through next.
// Delivery errors requeue the message once; malformed payloads are dropped.
func (q *AMQPQueue) Consume(ctx context.Context, next Notifier) error {
	const op = "notify.AMQPQueue.Consume"

	msgs, err := q.channel.Consume(q.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				q.log.Warn("drop malformed notification", "error", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := next.Send(ctx, msg); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}

			_ = d.Ack(false)
		}
	}
}
