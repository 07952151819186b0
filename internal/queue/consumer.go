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
	"github.com/sirupsen/logrus"
)

const maxBackoff = 30 * time.Second

// Consumer drains the reservation event queue into an append-only JSON log,
// one line per event.
type Consumer struct {
	url   string
	queue string
	log   *logrus.Logger // operational messages
	sink  *logrus.Logger // received events
}

// NewConsumer writes events to sink.  Use OpenEventLog for the default file.
func NewConsumer(url, queueName string, sink io.Writer, log *logrus.Logger) *Consumer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := logrus.New()
	out.SetOutput(sink)
	out.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return &Consumer{url: url, queue: queueName, log: log, sink: out}
}

// OpenEventLog opens path for appending, creating its directory.
func OpenEventLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir logs: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("event consumer: reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("event consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Handle(d.Body); err != nil {
			c.log.WithError(err).WithField("message_id", d.MessageId).Warn("event consumer: rejecting message")
			_ = d.Nack(false, false) // no requeue, a bad payload would loop forever
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and records it.
func (c *Consumer) Handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ReservationID == 0 {
		return errors.New("event without type or reservation id")
	}
	e := c.sink.WithFields(logrus.Fields{
		"event_id":       ev.EventID,
		"event_type":     ev.Type,
		"reservation_id": ev.ReservationID,
		"folio":          ev.Folio,
		"user_id":        ev.UserID,
		"vehicle_id":     ev.VehicleID,
		"status":         ev.Status,
		"start_date":     ev.StartDate,
		"end_date":       ev.EndDate,
		"total_price":    ev.TotalPrice.StringFixed(2),
		"occurred_at":    ev.OccurredAt,
	})
	if ev.PreviousStatus != "" {
		e = e.WithField("previous_status", ev.PreviousStatus)
	}
	e.Info("reservation event")
	return nil
}
