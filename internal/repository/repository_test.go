package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

var (
	ctx    = context.Background()
	tstamp = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func screeningRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "movie_id", "room_id", "date", "start", "end",
		"price_regular_cents", "price_vip_cents", "language", "format",
		"available_seats", "status", "created_at", "updated_at",
	})
}

func TestScreeningRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM screenings s WHERE s.id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(screeningRow().AddRow(7, 3, 2, "2026-05-02", "18:00", nil, 1000, 1500, "en", "2D", 80, "scheduled", tstamp, tstamp))

	s, err := repo.GetByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "18:00", s.StartTime)
	assert.Nil(t, s.EndTime)
	assert.Equal(t, model.ScreeningScheduled, s.Status)
	assert.Equal(t, int64(1500), s.PriceVIPCents)

	mock.ExpectQuery(regexp.QuoteMeta("FROM screenings s WHERE s.id = ?")).
		WithArgs(uint64(8)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScreeningRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	end := "20:10"
	s := &model.Screening{
		MovieID: 3, RoomID: 2, Date: "2026-05-02", StartTime: "18:00", EndTime: &end,
		PriceRegularCents: 1000, PriceVIPCents: 1500, Language: "en", Format: "2D",
		AvailableSeats: 80, Status: model.ScreeningScheduled,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO screenings")).
		WithArgs(uint64(3), uint64(2), "2026-05-02", "18:00", "20:10", int64(1000), int64(1500), "en", "2D", 80, "scheduled").
		WillReturnResult(sqlmock.NewResult(41, 1))

	require.NoError(t, repo.Create(ctx, s))
	assert.Equal(t, uint64(41), s.ID)
}

func TestScreeningRepo_ListByRoomAndDates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("s.screening_date IN (?, ?, ?)")).
		WithArgs(uint64(2), "2026-05-01", "2026-05-02", "2026-05-03").
		WillReturnRows(screeningRow().
			AddRow(1, 3, 2, "2026-05-01", "23:00", "25:10", 1000, 1000, "en", "2D", 80, "scheduled", tstamp, tstamp).
			AddRow(2, 3, 2, "2026-05-02", "18:00", "20:10", 1000, 1000, "en", "2D", 80, "ongoing", tstamp, tstamp))

	out, err := repo.ListByRoomAndDates(ctx, 2, []string{"2026-05-01", "2026-05-02", "2026-05-03"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "25:10", *out[0].EndTime)

	empty, err := repo.ListByRoomAndDates(ctx, 2, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestScreeningRepo_Counters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = 'scheduled' AND available_seats >= ?")).
		WithArgs(2, uint64(9), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.DecrementAvailable(ctx, 9, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("available_seats >= ?")).
		WithArgs(5, uint64(9), 5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.DecrementAvailable(ctx, 9, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("s.available_seats + ? <= rm.capacity")).
		WithArgs(2, uint64(9), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err = repo.IncrementAvailable(ctx, 9, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScreeningRepo_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE screenings SET status = ?")).
		WithArgs("ongoing", uint64(4), "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateStatus(ctx, 4, model.ScreeningScheduled, model.ScreeningOngoing))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE screenings SET status = ?")).
		WithArgs("completed", uint64(4), "ongoing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 4, model.ScreeningOngoing, model.ScreeningCompleted), ErrNoChange)
}

func TestScreeningRepo_SearchListings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewScreeningRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("2026-05-02", uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT ? OFFSET ?")).
		WithArgs("2026-05-02", uint64(3), 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "movie_id", "title", "room_id", "room", "date", "start", "end",
			"regular", "vip", "language", "format", "available", "status",
		}).AddRow(5, 3, "Heat", 2, "Room 2", "2026-05-02", "18:00", "20:50", 1000, 1500, "en", "2D", 80, "scheduled"))

	out, total, err := repo.SearchListings(ctx, ScreeningSearchQuery{Date: "2026-05-02", MovieID: 3, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, out, 1)
	assert.Equal(t, "Heat", out[0].MovieTitle)
	assert.Equal(t, "20:50", *out[0].EndTime)
}

func TestRoomRepo_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoomRepo(db)

	t.Run("applied", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("TIMESTAMP(s.screening_date, s.start_time) > ?")).
			WithArgs("maintenance", uint64(2), "maintenance", "maintenance", "2026-05-01 12:00:00").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.UpdateStatus(ctx, 2, model.RoomMaintenance, "2026-05-01 12:00:00"))
	})

	t.Run("blocked by scheduled screenings", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM rooms WHERE id = ?")).
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
		assert.ErrorIs(t, repo.UpdateStatus(ctx, 2, model.RoomClosed, "2026-05-01 12:00:00"), ErrConflict)
	})

	t.Run("unchanged", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM rooms")).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))
		assert.ErrorIs(t, repo.UpdateStatus(ctx, 2, model.RoomActive, "2026-05-01 12:00:00"), ErrNoChange)
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE rooms")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM rooms")).
			WillReturnError(sql.ErrNoRows)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, 99, model.RoomActive, "2026-05-01 12:00:00"), ErrNotFound)
	})
}

func TestRoomAndMovieRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE id = ?")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "vip", "3d", "imax", "status", "c", "u"}).
			AddRow(2, "Room 2", 80, true, false, true, "active", tstamp, tstamp))
	room, err := NewRoomRepo(db).GetByID(ctx, 2)
	require.NoError(t, err)
	assert.True(t, room.HasVIP)
	assert.Equal(t, model.RoomActive, room.Status)

	mock.ExpectQuery(regexp.QuoteMeta("FROM movies WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "duration"}).AddRow(3, "Heat", 170))
	movie, err := NewMovieRepo(db).GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 170, movie.DurationMinutes)

	mock.ExpectQuery(regexp.QuoteMeta("FROM movies WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)
	_, err = NewMovieRepo(db).GetByID(ctx, 4)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeatLedgerRepo_GuardedWrites(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatLedgerRepo(db)
	expiry := tstamp.Add(15*time.Minute + 1234567*time.Nanosecond)

	t.Run("claim inserts", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, 'occupied', NULL, ?, 1, ?)")).
			WithArgs(uint64(1), "A1", "t-1", tstamp).
			WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.Claim(ctx, 1, "A1", "t-1", tstamp)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("claim rejected", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		ok, err := repo.Claim(ctx, 1, "A1", "t-2", tstamp)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hold updates with millisecond expiry", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, 'reserved', ?, NULL, 1, ?)")).
			WithArgs(uint64(1), "B2", tstamp.Add(15*time.Minute+time.Millisecond), tstamp).
			WillReturnResult(sqlmock.NewResult(0, 2))
		ok, err := repo.Hold(ctx, 1, "B2", expiry, tstamp)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release hold guarded by expiry", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("AND status = 'reserved' AND reservation_expiry = ?")).
			WithArgs(tstamp, uint64(1), "B2", tstamp.Add(15*time.Minute+time.Millisecond)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		ok, err := repo.ReleaseHold(ctx, 1, "B2", &expiry, tstamp)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release owned", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("status = 'occupied' AND ticket_id = ?")).
			WithArgs(tstamp, uint64(1), "A1", "t-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		ok, err := repo.ReleaseIfOwned(ctx, 1, "A1", "t-1", tstamp)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("insert occupied if absent", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE seat_id = seat_id")).
			WithArgs(uint64(1), "B5", "t-9", tstamp).
			WillReturnResult(sqlmock.NewResult(0, 1))
		inserted, err := repo.InsertOccupiedIfAbsent(ctx, 1, "B5", "t-9", tstamp)
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}

func TestSeatLedgerRepo_ListByScreening(t *testing.T) {
	db, mock := newMock(t)
	ticket := "t-1"
	mock.ExpectQuery(regexp.QuoteMeta("FROM seat_ledger WHERE screening_id = ?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"screening_id", "seat_id", "status", "expiry", "ticket_id", "version", "updated_at"}).
			AddRow(1, "A1", "occupied", nil, ticket, 3, tstamp).
			AddRow(1, "A2", "reserved", tstamp, nil, 1, tstamp))

	out, err := NewSeatLedgerRepo(db).ListByScreening(ctx, 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, model.SeatOccupied, out[0].Status)
	require.NotNil(t, out[0].TicketID)
	assert.Equal(t, "t-1", *out[0].TicketID)
	assert.Nil(t, out[1].TicketID)
	require.NotNil(t, out[1].ReservationExpiry)
}

func ticketRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "screening_id", "seat_labels", "ticket_type", "unit", "paid",
		"name", "email", "phone", "user_id", "code", "status", "created_at", "cancelled_at",
	})
}

func TestTicketRepo_CreateBatch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)
	uid := uint64(12)
	tickets := []model.Ticket{
		{ID: "t-1", ScreeningID: 1, Seats: []string{"A1"}, TicketType: model.TicketTypeRegular, UnitPriceCents: 1000, PricePaidCents: 1000,
			Customer: model.CustomerInfo{Name: "Ann", Email: "ann@example.com"}, UserID: &uid, Code: "C1", Status: model.TicketActive, CreatedAt: tstamp},
		{ID: "t-2", ScreeningID: 1, Seats: []string{"A2"}, TicketType: model.TicketTypeRegular, UnitPriceCents: 1000, PricePaidCents: 1000,
			Customer: model.CustomerInfo{Name: "Ann", Email: "ann@example.com"}, Code: "C2", Status: model.TicketActive, CreatedAt: tstamp},
	}
	mock.ExpectExec(regexp.QuoteMeta("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?),(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, repo.CreateBatch(ctx, tickets))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tickets")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	assert.ErrorIs(t, repo.CreateBatch(ctx, tickets[:1]), ErrDuplicate)

	require.NoError(t, repo.CreateBatch(ctx, nil))
}

func TestTicketRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id = ?")).
		WithArgs("t-1").
		WillReturnRows(ticketRow().AddRow("t-1", 1, `["A1","A2"]`, "vip", 1500, 3000, "Ann", "ann@example.com", "", 12, "C1", "active", tstamp, nil))
	tk, err := repo.GetByID(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, tk.Seats)
	assert.Equal(t, model.TicketTypeVIP, tk.TicketType)
	require.NotNil(t, tk.UserID)
	assert.Equal(t, uint64(12), *tk.UserID)
	assert.Nil(t, tk.CancelledAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tickets WHERE id = ?")).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketRepo_StatusTransitions(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = 'active'")).
		WithArgs(tstamp, "t-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.MarkCancelled(ctx, "t-1", tstamp)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND status = 'active'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.MarkCancelled(ctx, "t-1", tstamp)
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'active', cancelled_at = NULL")).
		WithArgs("t-1", tstamp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevertCancel(ctx, "t-1", tstamp))
}

func TestTicketRepo_GetStatuses(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id IN (?, ?)")).
		WithArgs("t-1", "t-2").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow("t-1", "cancelled"))

	st, err := NewTicketRepo(db).GetStatuses(ctx, []string{"t-1", "t-2"})
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, st["t-1"])
	_, found := st["t-2"]
	assert.False(t, found)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}
