package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/repository"
)

// Supported projection formats.
const (
	Format2D   = "2D"
	Format3D   = "3D"
	FormatIMAX = "IMAX"
)

// Search paging bounds.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateScreeningInput is the operator request to schedule a movie in a room.
// PriceVIPCents and Format are optional.
type CreateScreeningInput struct {
	MovieID           uint64
	RoomID            uint64
	Date              string
	StartTime         string
	PriceRegularCents int64
	PriceVIPCents     *int64
	Language          string
	Format            string
}

// CatalogService owns screenings: scheduling, lifecycle status and browsing.
// Room status changes also live here because they are guarded by the
// room's future schedule.
type CatalogService struct {
	screenings ScreeningStore
	rooms      RoomStore
	movies     MovieStore
	detector   *ConflictDetector
	clock      Clock
	loc        *time.Location
}

type CatalogOption func(*CatalogService)

// WithCatalogClock overrides the wall clock.
func WithCatalogClock(c Clock) CatalogOption {
	return func(s *CatalogService) { s.clock = c }
}

// WithLocation sets the cinema time zone used for "today" and for
// rejecting screenings in the past.
func WithLocation(loc *time.Location) CatalogOption {
	return func(s *CatalogService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewCatalogService(screenings ScreeningStore, rooms RoomStore, movies MovieStore, opts ...CatalogOption) *CatalogService {
	s := &CatalogService{
		screenings: screenings,
		rooms:      rooms,
		movies:     movies,
		detector:   NewConflictDetector(screenings),
		clock:      SystemClock{},
		loc:        time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateScreening validates in, checks the room's schedule and stores a new
// scheduled screening with every seat available.
func (s *CatalogService) CreateScreening(ctx context.Context, in CreateScreeningInput) (*model.Screening, error) {
	if in.MovieID == 0 || in.RoomID == 0 {
		return nil, validation("movie_id and room_id are required")
	}
	if _, err := model.ParseDate(in.Date); err != nil {
		return nil, validation("date must be YYYY-MM-DD")
	}
	start, err := model.ParseClock(in.StartTime)
	if err != nil || start >= model.MinutesPerDay {
		return nil, validation("start_time must be HH:MM")
	}
	if in.PriceRegularCents < 0 || (in.PriceVIPCents != nil && *in.PriceVIPCents < 0) {
		return nil, validation("prices must not be negative")
	}
	format := strings.ToUpper(strings.TrimSpace(in.Format))
	if format == "" {
		format = Format2D
	}
	if format != Format2D && format != Format3D && format != FormatIMAX {
		return nil, validation("unsupported format %q", in.Format)
	}

	draft := &model.Screening{Date: in.Date, StartTime: model.FormatClock(start)}
	startsAt, err := draft.StartsAt(s.loc)
	if err != nil {
		return nil, validation("invalid start: %v", err)
	}
	if !startsAt.After(s.clock.Now()) {
		return nil, validation("screening must start in the future")
	}

	movie, err := s.movies.GetByID(ctx, in.MovieID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("movie %d not found", in.MovieID)
		}
		return nil, internal(err, "load movie")
	}
	if movie.DurationMinutes <= 0 {
		return nil, validation("movie %d has no duration", movie.ID)
	}
	room, err := s.rooms.GetByID(ctx, in.RoomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("room %d not found", in.RoomID)
		}
		return nil, internal(err, "load room")
	}
	if room.Status != model.RoomActive {
		return nil, conflict(ReasonRoomUnavailable, "room %d is %s", room.ID, room.Status)
	}
	if (format == Format3D && !room.Has3D) || (format == FormatIMAX && !room.HasIMAX) {
		return nil, validation("room %d does not support %s", room.ID, format)
	}

	end := start + movie.DurationMinutes
	if end >= 2*model.MinutesPerDay {
		return nil, validation("screening would end after the following day")
	}
	overlaps, err := s.detector.Check(ctx, room.ID, in.Date, start, end)
	if err != nil {
		return nil, internal(err, "check schedule")
	}
	if len(overlaps) > 0 {
		e := conflict(ReasonScheduleOverlap, "room %d is already booked at that time", room.ID)
		e.Overlaps = overlaps
		return nil, e
	}

	vip := in.PriceRegularCents
	switch {
	case in.PriceVIPCents != nil:
		vip = *in.PriceVIPCents
	case room.HasVIP:
		vip = DefaultVIPPrice(in.PriceRegularCents)
	}
	endClock := model.FormatClock(end)
	sc := &model.Screening{
		MovieID:           movie.ID,
		RoomID:            room.ID,
		Date:              in.Date,
		StartTime:         model.FormatClock(start),
		EndTime:           &endClock,
		PriceRegularCents: in.PriceRegularCents,
		PriceVIPCents:     vip,
		Language:          strings.TrimSpace(in.Language),
		Format:            format,
		AvailableSeats:    room.Capacity,
		Status:            model.ScreeningScheduled,
	}
	if err := s.screenings.Create(ctx, sc); err != nil {
		return nil, internal(err, "create screening")
	}
	logger.Info("screening created",
		zap.Uint64("screening_id", sc.ID),
		zap.Uint64("room_id", sc.RoomID),
		zap.String("date", sc.Date),
		zap.String("start", sc.StartTime),
		zap.String("end", endClock),
	)
	return sc, nil
}

// GetScreening returns one screening.
func (s *CatalogService) GetScreening(ctx context.Context, id uint64) (*model.Screening, error) {
	sc, err := s.screenings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("screening %d not found", id)
		}
		return nil, internal(err, "load screening")
	}
	return sc, nil
}

// UpdateStatus moves a screening along its lifecycle.  The write is
// conditional on the status read here, so a concurrent change surfaces as
// a conflict instead of being overwritten.  Seats and tickets are left as
// they are.
func (s *CatalogService) UpdateStatus(ctx context.Context, id uint64, raw string) (*model.Screening, error) {
	target, err := model.ParseScreeningStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return nil, validation("%v", err)
	}
	sc, err := s.GetScreening(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sc.Status.CanTransitionTo(target) {
		return nil, conflict(ReasonStatusTransition, "cannot move screening from %s to %s", sc.Status, target)
	}
	if err := s.screenings.UpdateStatus(ctx, id, sc.Status, target); err != nil {
		if errors.Is(err, repository.ErrNoChange) {
			return nil, conflict(ReasonStatusTransition, "screening %d changed status concurrently", id)
		}
		return nil, internal(err, "update screening status")
	}
	logger.Info("screening status changed",
		zap.Uint64("screening_id", id),
		zap.String("from", string(sc.Status)),
		zap.String("to", string(target)),
	)
	sc.Status = target
	return sc, nil
}

// UpdateRoomStatus changes a room's operational status.  Taking a room out
// of service is refused while it still has scheduled screenings that have
// not started yet.
func (s *CatalogService) UpdateRoomStatus(ctx context.Context, id uint64, raw string) (*model.Room, error) {
	target, err := model.ParseRoomStatus(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return nil, validation("%v", err)
	}
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("room %d not found", id)
		}
		return nil, internal(err, "load room")
	}
	if room.Status == target {
		return room, nil
	}
	now := s.clock.Now().In(s.loc).Format(model.WallClockLayout)
	switch err := s.rooms.UpdateStatus(ctx, id, target, now); {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return nil, notFound("room %d not found", id)
	case errors.Is(err, repository.ErrConflict):
		return nil, conflict(ReasonRoomUnavailable, "room %d has scheduled screenings", id)
	case errors.Is(err, repository.ErrNoChange):
		return nil, conflict(ReasonStatusTransition, "room %d changed status concurrently", id)
	default:
		return nil, internal(err, "update room status")
	}
	room.Status = target
	return room, nil
}

// SearchResult is one page of screening listings.
type SearchResult struct {
	Items    []repository.ScreeningListing `json:"items"`
	Page     int                           `json:"page"`
	PageSize int                           `json:"page_size"`
	Total    int64                         `json:"total"`
}

// Search lists screenings for browsing.  Without an explicit date only
// screenings from today on are returned.
func (s *CatalogService) Search(ctx context.Context, q repository.ScreeningSearchQuery) (*SearchResult, error) {
	if q.Date != "" {
		if _, err := model.ParseDate(q.Date); err != nil {
			return nil, validation("date must be YYYY-MM-DD")
		}
	}
	if st := strings.ToLower(q.Status); st != "" && st != "any" {
		if _, err := model.ParseScreeningStatus(st); err != nil {
			return nil, validation("%v", err)
		}
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	if q.Date == "" && q.FromDate == "" {
		q.FromDate = s.clock.Now().In(s.loc).Format(model.DateLayout)
	}
	items, total, err := s.screenings.SearchListings(ctx, q)
	if err != nil {
		return nil, internal(err, "search screenings")
	}
	if items == nil {
		items = []repository.ScreeningListing{}
	}
	return &SearchResult{Items: items, Page: q.Page, PageSize: q.PageSize, Total: total}, nil
}
