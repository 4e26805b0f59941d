package repository

import (
	"context"
	"strings"
)

// ScreeningSearchQuery defines filters & pagination for browsing screenings.
// Zero values mean "no filter"; Status defaults to scheduled.
type ScreeningSearchQuery struct {
	Date     string
	MovieID  uint64
	RoomID   uint64
	Title    string
	Status   string
	FromDate string
	Page     int
	PageSize int
}

// ScreeningListing is the public, denormalised row returned by SearchListings.
type ScreeningListing struct {
	ID                uint64  `json:"id"`
	MovieID           uint64  `json:"movie_id"`
	MovieTitle        string  `json:"movie_title"`
	RoomID            uint64  `json:"room_id"`
	RoomName          string  `json:"room_name"`
	Date              string  `json:"date"`
	StartTime         string  `json:"start_time"`
	EndTime           *string `json:"end_time"`
	PriceRegularCents int64   `json:"price_regular_cents"`
	PriceVIPCents     int64   `json:"price_vip_cents"`
	Language          string  `json:"language"`
	Format            string  `json:"format"`
	AvailableSeats    int     `json:"available_seats"`
	Status            string  `json:"status"`
}

// SearchListings returns one page of screenings matching q plus the total
// match count.
func (r *ScreeningRepo) SearchListings(ctx context.Context, q ScreeningSearchQuery) ([]ScreeningListing, int64, error) {
	where := []string{}
	args := []any{}

	status := strings.ToLower(q.Status)
	switch status {
	case "any":
	case "":
		where = append(where, "s.status = 'scheduled'")
	default:
		where = append(where, "s.status = ?")
		args = append(args, status)
	}
	if q.Date != "" {
		where = append(where, "s.screening_date = ?")
		args = append(args, q.Date)
	} else if q.FromDate != "" {
		where = append(where, "s.screening_date >= ?")
		args = append(args, q.FromDate)
	}
	if q.MovieID != 0 {
		where = append(where, "s.movie_id = ?")
		args = append(args, q.MovieID)
	}
	if q.RoomID != 0 {
		where = append(where, "s.room_id = ?")
		args = append(args, q.RoomID)
	}
	if q.Title != "" {
		where = append(where, "LOWER(m.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	countSQL := `SELECT COUNT(*)
		FROM screenings s
		JOIN movies m ON m.id = s.movie_id
		JOIN rooms rm ON rm.id = s.room_id
		WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize
	if offset < 0 {
		offset = 0
	}

	dataSQL := `SELECT
			s.id, s.movie_id, m.title, s.room_id, rm.name,
			DATE_FORMAT(s.screening_date, '%Y-%m-%d'),
			TIME_FORMAT(s.start_time, '%H:%i'),
			TIME_FORMAT(s.end_time, '%H:%i'),
			s.price_regular_cents, s.price_vip_cents, s.language, s.format,
			s.available_seats, s.status
		FROM screenings s
		JOIN movies m ON m.id = s.movie_id
		JOIN rooms rm ON rm.id = s.room_id
		WHERE ` + cond + `
		ORDER BY s.screening_date ASC, s.start_time ASC, s.id ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ScreeningListing, 0, limit)
	for rows.Next() {
		var d ScreeningListing
		if err := rows.Scan(
			&d.ID, &d.MovieID, &d.MovieTitle, &d.RoomID, &d.RoomName,
			&d.Date, &d.StartTime, &d.EndTime,
			&d.PriceRegularCents, &d.PriceVIPCents, &d.Language, &d.Format,
			&d.AvailableSeats, &d.Status,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
