package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Notifier forwards booking outcomes to the notification collaborator.
// Delivery is best effort: a failure is logged and never undoes the
// booking.
type Notifier interface {
	TicketsPurchased(ctx context.Context, screening *model.Screening, tickets []model.Ticket) error
	TicketCancelled(ctx context.Context, screening *model.Screening, ticket *model.Ticket) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) TicketsPurchased(context.Context, *model.Screening, []model.Ticket) error {
	return nil
}

func (NopNotifier) TicketCancelled(context.Context, *model.Screening, *model.Ticket) error {
	return nil
}

// notifyTimeout bounds a single notification.  The request context is
// detached so that a client disconnect does not drop the event.
const notifyTimeout = 5 * time.Second

func notify(ctx context.Context, event string, fn func(ctx context.Context) error) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := fn(nctx); err != nil {
		logger.Warn("notification failed", zap.String("event", event), zap.Error(err))
	}
}
