package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
)

const (
	consumerPrefetch   = 50
	consumerMaxBackoff = 30 * time.Second
)

// Consumer renders booking notifications as one line each and appends them
// to a log file, standing in for the mail/SMS sender.
type Consumer struct {
	URL     string
	Queue   string
	LogPath string
}

// Run connects to the broker and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff; a message that cannot be
// handled is rejected without requeue so that it cannot block the queue.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("booking-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < consumerMaxBackoff {
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
		logger.Warn("booking-consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		logger.Warn("booking-consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
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
			if err := c.Handle(d.Type, d.Body); err != nil {
				logger.Error("booking-consumer: handle message failed", zap.String("type", d.Type), zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle renders one message and appends it to the log file.
func (c *Consumer) Handle(typ string, body []byte) error {
	line, err := Render(typ, body)
	if err != nil {
		return err
	}
	logger.Info("booking notification", zap.String("type", typ), zap.String("line", line))
	if c.LogPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Render turns a message into a single human readable line.
func Render(typ string, body []byte) (string, error) {
	switch typ {
	case TypeTicketsPurchased:
		var ev TicketsPurchasedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		codes := make([]string, 0, len(ev.Tickets))
		var seats []string
		for _, t := range ev.Tickets {
			codes = append(codes, t.Code)
			seats = append(seats, t.Seats...)
		}
		return fmt.Sprintf("[%s] Tickets confirmed | to=%q <%s> | screening_id=%d | %s %s | seats=[%s] | codes=[%s] | total=%d cents",
			ev.PurchasedAt, ev.CustomerName, ev.CustomerEmail, ev.ScreeningID, ev.Date, ev.StartTime,
			strings.Join(seats, ","), strings.Join(codes, ","), ev.TotalCents), nil
	case TypeTicketCancelled:
		var ev TicketCancelledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Ticket cancelled | to=%q <%s> | screening_id=%d | %s %s | seats=[%s] | code=%s | refund=%d cents",
			ev.CancelledAt, ev.CustomerName, ev.CustomerEmail, ev.ScreeningID, ev.Date, ev.StartTime,
			strings.Join(ev.Ticket.Seats, ","), ev.Ticket.Code, ev.Ticket.PricePaidCents), nil
	}
	return "", fmt.Errorf("unknown message type %q", typ)
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
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
