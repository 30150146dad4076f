package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const ticketLogFile = "tickets.log"

// StartTicketConsumer consumes TicketQueue and appends one line per event to
// <logDir>/tickets.log, standing in for the holder notification.  It
// reconnects with backoff until ctx is cancelled.
func StartTicketConsumer(ctx context.Context, url, logDir string, log logrus.FieldLogger) {
	log = log.WithField("component", "ticket-consumer")
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.DialConfig(url, brokerConfig(dialTimeout))
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(ctx, conn, logDir, log); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("consume loop ended; reconnecting")
			sleep(ctx, 2*time.Second)
		}
		_ = conn.Close()
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(TicketQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(TicketQueue, "", false, false, false, false, nil)
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
			if err := handleMessage(logDir, d.Body); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(logDir string, body []byte) error {
	var ev TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.TicketID == 0 {
		return fmt.Errorf("incomplete ticket event")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, ticketLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(ev TicketEvent) string {
	verb := "Ticket booked"
	if ev.Type == TicketCancelled {
		verb = "Ticket cancelled"
	}
	return fmt.Sprintf("[%s] %s | ticket_id=%d | user_id=%d | event_id=%d | event=%q | seat=%s (%s) | price=%s | starts_at=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), verb, ev.TicketID, ev.UserID, ev.EventID, ev.EventTitle,
		ev.SeatLabel, ev.SeatType, ev.Price, ev.StartsAt.UTC().Format(time.RFC3339))
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
