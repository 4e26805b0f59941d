package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// SeatLedgerRepo provides data access to the seat_ledger table.  Entries are
// created lazily by the first hold or claim on a seat, so every write is an
// upsert whose ON DUPLICATE KEY branch carries the transition guard.  A
// rejected transition leaves the row untouched and reports zero rows
// affected; the driver's default (found rows disabled) is relied upon.
//
// Every column assignment tests the old status, so status itself is
// assigned last.
type SeatLedgerRepo struct {
	db *sql.DB
}

// NewSeatLedgerRepo returns a new SeatLedgerRepo bound to the provided database.
func NewSeatLedgerRepo(db *sql.DB) *SeatLedgerRepo { return &SeatLedgerRepo{db: db} }

// ledgerTime normalises timestamps to the column precision so that values
// written can later be compared for equality.
func ledgerTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// ListByScreening returns every ledger entry of a screening as stored.
// Callers apply lazy expiry through SeatLedgerEntry.EffectiveStatus.
func (r *SeatLedgerRepo) ListByScreening(ctx context.Context, screeningID uint64) ([]model.SeatLedgerEntry, error) {
	const q = `SELECT screening_id, seat_id, status, reservation_expiry, ticket_id, version, updated_at
	           FROM seat_ledger WHERE screening_id = ?`
	rows, err := r.db.QueryContext(ctx, q, screeningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SeatLedgerEntry
	for rows.Next() {
		var (
			e      model.SeatLedgerEntry
			status string
		)
		if err := rows.Scan(&e.ScreeningID, &e.SeatID, &status, &e.ReservationExpiry, &e.TicketID, &e.Version, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Status = model.SeatStatus(status)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertOccupiedIfAbsent records an occupied entry reconstructed from a
// ticket.  An existing entry always wins; inserted reports whether a row was
// created.
func (r *SeatLedgerRepo) InsertOccupiedIfAbsent(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	const q = `INSERT INTO seat_ledger (screening_id, seat_id, status, reservation_expiry, ticket_id, version, updated_at)
	           VALUES (?, ?, 'occupied', NULL, ?, 1, ?)
	           ON DUPLICATE KEY UPDATE seat_id = seat_id`
	res, err := r.db.ExecContext(ctx, q, screeningID, seatID, ticketID, ledgerTime(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Claim marks the seat occupied by ticketID unless it is already occupied or
// under maintenance.  It is the only way into occupied apart from
// InsertOccupiedIfAbsent.  A live hold by another customer does not block
// the claim.
func (r *SeatLedgerRepo) Claim(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	const q = `INSERT INTO seat_ledger (screening_id, seat_id, status, reservation_expiry, ticket_id, version, updated_at)
	           VALUES (?, ?, 'occupied', NULL, ?, 1, ?)
	           ON DUPLICATE KEY UPDATE
	             reservation_expiry = IF(status IN ('free','reserved'), NULL, reservation_expiry),
	             ticket_id          = IF(status IN ('free','reserved'), VALUES(ticket_id), ticket_id),
	             version            = IF(status IN ('free','reserved'), version + 1, version),
	             updated_at         = IF(status IN ('free','reserved'), VALUES(updated_at), updated_at),
	             status             = IF(status IN ('free','reserved'), 'occupied', status)`
	return r.execGuarded(ctx, q, screeningID, seatID, ticketID, ledgerTime(now))
}

// Hold marks the seat reserved until expiry unless it is occupied or under
// maintenance.  Re-holding a reserved seat, live or expired, succeeds and
// moves the expiry.
func (r *SeatLedgerRepo) Hold(ctx context.Context, screeningID uint64, seatID string, expiry, now time.Time) (bool, error) {
	const q = `INSERT INTO seat_ledger (screening_id, seat_id, status, reservation_expiry, ticket_id, version, updated_at)
	           VALUES (?, ?, 'reserved', ?, NULL, 1, ?)
	           ON DUPLICATE KEY UPDATE
	             reservation_expiry = IF(status IN ('free','reserved'), VALUES(reservation_expiry), reservation_expiry),
	             ticket_id          = IF(status IN ('free','reserved'), NULL, ticket_id),
	             version            = IF(status IN ('free','reserved'), version + 1, version),
	             updated_at         = IF(status IN ('free','reserved'), VALUES(updated_at), updated_at),
	             status             = IF(status IN ('free','reserved'), 'reserved', status)`
	return r.execGuarded(ctx, q, screeningID, seatID, ledgerTime(expiry), ledgerTime(now))
}

func (r *SeatLedgerRepo) execGuarded(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// 1 = inserted, 2 = updated, 0 = guard rejected the update
	return n > 0, nil
}

// Release frees the seat unconditionally.  A missing entry is not an error.
func (r *SeatLedgerRepo) Release(ctx context.Context, screeningID uint64, seatID string, now time.Time) error {
	const q = `UPDATE seat_ledger
	           SET status = 'free', reservation_expiry = NULL, ticket_id = NULL, version = version + 1, updated_at = ?
	           WHERE screening_id = ? AND seat_id = ? AND status <> 'free'`
	_, err := r.db.ExecContext(ctx, q, ledgerTime(now), screeningID, seatID)
	return err
}

// ReleaseIfOwned frees an occupied seat only while it still references
// ticketID.  It is the compare-and-set used by purchase compensation,
// cancellation and read-repair.
func (r *SeatLedgerRepo) ReleaseIfOwned(ctx context.Context, screeningID uint64, seatID, ticketID string, now time.Time) (bool, error) {
	const q = `UPDATE seat_ledger
	           SET status = 'free', reservation_expiry = NULL, ticket_id = NULL, version = version + 1, updated_at = ?
	           WHERE screening_id = ? AND seat_id = ? AND status = 'occupied' AND ticket_id = ?`
	return r.execGuarded(ctx, q, ledgerTime(now), screeningID, seatID, ticketID)
}

// ReleaseHold frees a reserved seat.  When expiry is non-nil only the hold
// written with exactly that expiry is released, which lets a failed
// multi-seat hold undo its own writes without touching a newer hold.
func (r *SeatLedgerRepo) ReleaseHold(ctx context.Context, screeningID uint64, seatID string, expiry *time.Time, now time.Time) (bool, error) {
	q := `UPDATE seat_ledger
	      SET status = 'free', reservation_expiry = NULL, ticket_id = NULL, version = version + 1, updated_at = ?
	      WHERE screening_id = ? AND seat_id = ? AND status = 'reserved'`
	args := []any{ledgerTime(now), screeningID, seatID}
	if expiry != nil {
		q += ` AND reservation_expiry = ?`
		args = append(args, ledgerTime(*expiry))
	}
	return r.execGuarded(ctx, q, args...)
}
