package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// TicketQueue is the durable queue ticket lifecycle events are routed to.
const TicketQueue = "ticket.events"

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialTimeout bounds the TCP connect and the AMQP handshake.  Dialing
// happens under the publisher lock.
const dialTimeout = 3 * time.Second

func brokerConfig(timeout time.Duration) amqp.Config {
	return amqp.Config{Dial: amqp.DefaultDial(timeout)}
}

// dialFunc opens a channel plus a closer for its connection.
type dialFunc func(url string) (channel, func() error, error)

func amqpDialer(timeout time.Duration) dialFunc {
	return func(url string) (channel, func() error, error) {
		conn, err := amqp.DialConfig(url, brokerConfig(timeout))
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return ch, conn.Close, nil
	}
}

// Publisher keeps one broker connection open and redials after any failure.
// It is safe for concurrent use.
type Publisher struct {
	url  string
	dial dialFunc
	log  logrus.FieldLogger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{url: url, dial: amqpDialer(dialTimeout), log: log}
}

// PublishTicketEvent sends ev as a persistent JSON message.
func (p *Publisher) PublishTicketEvent(ctx context.Context, ev TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ticket event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         ev.Type,
		MessageId:    fmt.Sprintf("%s:%d", ev.Type, ev.TicketID),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.channelLocked()
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", TicketQueue, false, false, msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *Publisher) channelLocked() (channel, error) {
	if p.ch != nil {
		return p.ch, nil
	}
	if p.url == "" {
		return nil, errors.New("rabbitmq url not configured")
	}
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	if _, err := ch.QueueDeclare(TicketQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return nil, fmt.Errorf("declare %s: %w", TicketQueue, err)
	}
	p.ch, p.closeConn = ch, closeConn
	p.log.WithField("queue", TicketQueue).Info("ticket publisher connected")
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}
