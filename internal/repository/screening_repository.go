package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// ScreeningRepo manages persistence for screenings.  available_seats is
// only ever changed through DecrementAvailable and IncrementAvailable, each
// a single guarded UPDATE.
type ScreeningRepo struct {
	db *sql.DB
}

// NewScreeningRepo constructs a ScreeningRepo with the given DB handle.
func NewScreeningRepo(db *sql.DB) *ScreeningRepo {
	return &ScreeningRepo{db: db}
}

// screeningColumns renders DATE/TIME columns as the wall clock strings the
// model carries.  TIME_FORMAT keeps hours above 23 for end times that spill
// past midnight.
const screeningColumns = `s.id, s.movie_id, s.room_id,
       DATE_FORMAT(s.screening_date, '%Y-%m-%d'),
       TIME_FORMAT(s.start_time, '%H:%i'),
       TIME_FORMAT(s.end_time, '%H:%i'),
       s.price_regular_cents, s.price_vip_cents, s.language, s.format,
       s.available_seats, s.status, s.created_at, s.updated_at`

func scanScreening(sc scanner) (*model.Screening, error) {
	var (
		s      model.Screening
		end    sql.NullString
		status string
	)
	if err := sc.Scan(
		&s.ID, &s.MovieID, &s.RoomID,
		&s.Date, &s.StartTime, &end,
		&s.PriceRegularCents, &s.PriceVIPCents, &s.Language, &s.Format,
		&s.AvailableSeats, &status, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if end.Valid {
		s.EndTime = &end.String
	}
	s.Status = model.ScreeningStatus(status)
	return &s, nil
}

// Create inserts a new screening and assigns the generated ID.  Status and
// AvailableSeats must be set by the caller.
func (r *ScreeningRepo) Create(ctx context.Context, s *model.Screening) error {
	const q = `INSERT INTO screenings
	  (movie_id, room_id, screening_date, start_time, end_time,
	   price_regular_cents, price_vip_cents, language, format, available_seats, status)
	  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var end any // NULL when unknown
	if s.EndTime != nil {
		end = *s.EndTime
	}
	res, err := r.db.ExecContext(ctx, q,
		s.MovieID, s.RoomID, s.Date, s.StartTime, end,
		s.PriceRegularCents, s.PriceVIPCents, s.Language, s.Format, s.AvailableSeats, string(s.Status),
	)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID retrieves a screening by its ID.  It returns ErrNotFound if there
// is no matching row.
func (r *ScreeningRepo) GetByID(ctx context.Context, id uint64) (*model.Screening, error) {
	q := `SELECT ` + screeningColumns + ` FROM screenings s WHERE s.id = ?`
	s, err := scanScreening(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListByRoomAndDates returns the non-cancelled screenings of a room on any of
// the given dates, ordered by date and start time.
func (r *ScreeningRepo) ListByRoomAndDates(ctx context.Context, roomID uint64, dates []string) ([]model.Screening, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(dates)+1)
	args = append(args, roomID)
	for _, d := range dates {
		args = append(args, d)
	}
	q := `SELECT ` + screeningColumns + `
	      FROM screenings s
	      WHERE s.room_id = ? AND s.screening_date IN (` + placeholders(len(dates)) + `)
	        AND s.status <> 'cancelled'
	      ORDER BY s.screening_date ASC, s.start_time ASC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Screening
	for rows.Next() {
		s, err := scanScreening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateStatus moves a screening from one status to another.  The UPDATE is
// conditional on the current status so that concurrent transitions cannot
// both succeed; ErrNoChange means the row was not in status from.
func (r *ScreeningRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.ScreeningStatus) error {
	const q = `UPDATE screenings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, string(to), id, string(from))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoChange
	}
	return nil
}

// DecrementAvailable subtracts n seats when the screening is still scheduled
// and has at least n seats left.  ok is false when the guard failed.
func (r *ScreeningRepo) DecrementAvailable(ctx context.Context, id uint64, n int) (bool, error) {
	const q = `UPDATE screenings
	           SET available_seats = available_seats - ?
	           WHERE id = ? AND status = 'scheduled' AND available_seats >= ?`
	res, err := r.db.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// IncrementAvailable adds n seats back, never exceeding the room capacity.
// ok is false when the increment would break the bound or the row is gone.
func (r *ScreeningRepo) IncrementAvailable(ctx context.Context, id uint64, n int) (bool, error) {
	const q = `UPDATE screenings s
	           JOIN rooms rm ON rm.id = s.room_id
	           SET s.available_seats = s.available_seats + ?
	           WHERE s.id = ? AND s.available_seats + ? <= rm.capacity`
	res, err := r.db.ExecContext(ctx, q, n, id, n)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// placeholders returns "?, ?, ..." with n markers.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
