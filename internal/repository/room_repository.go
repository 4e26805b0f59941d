package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// RoomRepo reads rooms maintained by catalog sync and applies operator
// status changes.
type RoomRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetByID retrieves a room by its ID.  It returns ErrNotFound when no row
// is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT id, name, capacity, has_vip, has_3d, has_imax, status, created_at, updated_at
	           FROM rooms WHERE id = ?`
	var (
		rm     model.Room
		status string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&rm.ID, &rm.Name, &rm.Capacity, &rm.HasVIP, &rm.Has3D, &rm.HasIMAX, &status, &rm.CreatedAt, &rm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rm.Status = model.RoomStatus(status)
	return &rm, nil
}

// UpdateStatus sets the room status.  Moving a room out of service is
// refused with ErrConflict while it still has scheduled screenings starting
// after the local wall-clock time after (model.WallClockLayout); the check
// and the write are one statement.  ErrNotFound
// and ErrNoChange distinguish the remaining zero-row outcomes.
func (r *RoomRepo) UpdateStatus(ctx context.Context, id uint64, status model.RoomStatus, after string) error {
	const q = `UPDATE rooms
	           SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status <> ?
	             AND (? = 'active' OR NOT EXISTS (
	                   SELECT 1 FROM screenings s
	                   WHERE s.room_id = rooms.id AND s.status = 'scheduled'
	                     AND TIMESTAMP(s.screening_date, s.start_time) > ?))`
	res, err := r.db.ExecContext(ctx, q, string(status), id, string(status), string(status), after)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Work out why nothing changed.
	var current string
	if err := r.db.QueryRowContext(ctx, `SELECT status FROM rooms WHERE id = ?`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if current == string(status) {
		return ErrNoChange
	}
	return ErrConflict
}
