package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// TicketRepo persists tickets.  Tickets are immutable after creation except
// for status and cancelled_at, which only change through MarkCancelled and
// RevertCancel.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `id, screening_id, seat_labels, ticket_type, unit_price_cents, price_paid_cents,
       customer_name, customer_email, customer_phone, user_id, ticket_code, status, created_at, cancelled_at`

func scanTicket(sc scanner) (*model.Ticket, error) {
	var (
		t      model.Ticket
		seats  []byte
		ttype  string
		status string
		userID sql.NullInt64
	)
	if err := sc.Scan(
		&t.ID, &t.ScreeningID, &seats, &ttype, &t.UnitPriceCents, &t.PricePaidCents,
		&t.Customer.Name, &t.Customer.Email, &t.Customer.Phone, &userID, &t.Code, &status,
		&t.CreatedAt, &t.CancelledAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &t.Seats); err != nil {
		return nil, fmt.Errorf("decode seat labels of ticket %s: %w", t.ID, err)
	}
	if userID.Valid {
		uid := uint64(userID.Int64)
		t.UserID = &uid
	}
	t.TicketType = model.TicketType(ttype)
	t.Status = model.TicketStatus(status)
	return &t, nil
}

// CreateBatch inserts all tickets of one purchase in a single statement, so
// either every ticket exists afterwards or none does.  A ticket code
// collision surfaces as ErrDuplicate.
func (r *TicketRepo) CreateBatch(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	query := `INSERT INTO tickets (id, screening_id, seat_labels, seat_count, ticket_type, unit_price_cents,
	          price_paid_cents, customer_name, customer_email, customer_phone, user_id, ticket_code, status, created_at) VALUES `
	args := make([]any, 0, len(tickets)*14)
	for i, t := range tickets {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		seats, err := json.Marshal(t.Seats)
		if err != nil {
			return err
		}
		var uid any
		if t.UserID != nil {
			uid = *t.UserID
		}
		args = append(args,
			t.ID, t.ScreeningID, string(seats), len(t.Seats), string(t.TicketType), t.UnitPriceCents,
			t.PricePaidCents, t.Customer.Name, t.Customer.Email, t.Customer.Phone, uid, t.Code, string(t.Status),
			t.CreatedAt.UTC(),
		)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return translate(err)
}

// GetByID returns ErrNotFound when no ticket has the given ID.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListHoldingSeats returns the tickets of a screening whose status keeps
// their seats occupied (active or used).
func (r *TicketRepo) ListHoldingSeats(ctx context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets
	   WHERE screening_id = ? AND status IN ('active','used') ORDER BY created_at ASC`, screeningID)
}

// ListByScreening returns every ticket of a screening, newest first.
func (r *TicketRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets
	   WHERE screening_id = ? ORDER BY created_at DESC`, screeningID)
}

// ListByUser returns one page of a user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets
	   WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, userID, limit, offset)
}

func (r *TicketRepo) list(ctx context.Context, q string, args ...any) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStatuses returns the status of each ticket that exists among ids.
// Missing IDs are simply absent from the map.
func (r *TicketRepo) GetStatuses(ctx context.Context, ids []string) (map[string]model.TicketStatus, error) {
	out := make(map[string]model.TicketStatus, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, status FROM tickets WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return nil, err
		}
		out[id] = model.TicketStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkCancelled flips an active ticket to cancelled.  ok is false when the
// ticket was no longer active, which makes a second cancel a no-op.
func (r *TicketRepo) MarkCancelled(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `UPDATE tickets SET status = 'cancelled', cancelled_at = ? WHERE id = ? AND status = 'active'`
	res, err := r.db.ExecContext(ctx, q, at.UTC().Truncate(time.Millisecond), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RevertCancel undoes MarkCancelled when the rest of the cancellation could
// not be applied.  Only the flip made at the given instant is reverted.
func (r *TicketRepo) RevertCancel(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE tickets SET status = 'active', cancelled_at = NULL
	           WHERE id = ? AND status = 'cancelled' AND cancelled_at = ?`
	res, err := r.db.ExecContext(ctx, q, id, at.UTC().Truncate(time.Millisecond))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoChange
	}
	return nil
}
