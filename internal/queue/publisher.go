package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel to the broker within ctx's deadline.  The returned
// close function releases the underlying connection.
type Dialer func(ctx context.Context, url string) (Channel, func() error, error)

// defaultDialTimeout bounds connect and handshake when ctx has no deadline.
const defaultDialTimeout = 30 * time.Second

// DialAMQP is the Dialer backed by a real broker connection.  The TCP
// connect and the AMQP handshake share ctx's remaining time.
func DialAMQP(ctx context.Context, url string) (Channel, func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, nil, fmt.Errorf("dial: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, conn.Close, nil
}

// Publisher sends booking notifications to a durable queue.  Each publish
// opens its own connection; notifications are rare compared to seat map
// reads and a broker outage must never affect a booking.
type Publisher struct {
	url   string
	queue string
	dial  Dialer
}

func NewPublisher(url, queue string, dial Dialer) *Publisher {
	if dial == nil {
		dial = DialAMQP
	}
	return &Publisher{url: url, queue: queue, dial: dial}
}

// TicketsPurchased publishes a TicketsPurchasedEvent.
func (p *Publisher) TicketsPurchased(ctx context.Context, sc *model.Screening, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return errors.New("no tickets to announce")
	}
	return p.publish(ctx, TypeTicketsPurchased, NewTicketsPurchasedEvent(sc, tickets))
}

// TicketCancelled publishes a TicketCancelledEvent.
func (p *Publisher) TicketCancelled(ctx context.Context, sc *model.Screening, t *model.Ticket) error {
	return p.publish(ctx, TypeTicketCancelled, NewTicketCancelledEvent(sc, t))
}

func (p *Publisher) publish(ctx context.Context, typ string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}

	ch, closeConn, err := p.dial(ctx, p.url)
	if err != nil {
		logger.Warn("rabbitmq: connect failed", zap.Error(err))
		return err
	}
	defer func() {
		_ = ch.Close()
		_ = closeConn()
	}()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         typ,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish %s: %w", typ, err)
	}
	logger.Debug("rabbitmq: event published", zap.String("type", typ), zap.String("queue", p.queue))
	return nil
}
