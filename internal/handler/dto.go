package handler

import (
	"time"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// Requests.

type holdRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,max=10,dive,required"`
}

type customerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
}

type purchaseRequest struct {
	SeatIDs          []string        `json:"seat_ids" validate:"required,min=1,max=10,dive,required"`
	Customer         customerRequest `json:"customer"`
	TicketType       string          `json:"ticket_type" validate:"omitempty,max=16"`
	PaymentConfirmed bool            `json:"payment_confirmed"`
	Granularity      string          `json:"granularity" validate:"omitempty,oneof=combined per_seat"`
}

type createScreeningRequest struct {
	MovieID           uint64 `json:"movie_id" validate:"required"`
	RoomID            uint64 `json:"room_id" validate:"required"`
	Date              string `json:"date" validate:"required"`
	StartTime         string `json:"start_time" validate:"required"`
	PriceRegularCents int64  `json:"price_regular_cents" validate:"gte=0"`
	PriceVIPCents     *int64 `json:"price_vip_cents" validate:"omitempty,gte=0"`
	Language          string `json:"language" validate:"omitempty,max=32"`
	Format            string `json:"format" validate:"omitempty,max=8"`
}

func (r createScreeningRequest) input() service.CreateScreeningInput {
	return service.CreateScreeningInput{
		MovieID:           r.MovieID,
		RoomID:            r.RoomID,
		Date:              r.Date,
		StartTime:         r.StartTime,
		PriceRegularCents: r.PriceRegularCents,
		PriceVIPCents:     r.PriceVIPCents,
		Language:          r.Language,
		Format:            r.Format,
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Responses.

type ScreeningDTO struct {
	ID                uint64    `json:"id"`
	MovieID           uint64    `json:"movie_id"`
	RoomID            uint64    `json:"room_id"`
	Date              string    `json:"date"`
	StartTime         string    `json:"start_time"`
	EndTime           *string   `json:"end_time"`
	PriceRegularCents int64     `json:"price_regular_cents"`
	PriceVIPCents     int64     `json:"price_vip_cents"`
	Language          string    `json:"language"`
	Format            string    `json:"format"`
	AvailableSeats    int       `json:"available_seats"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

func toScreeningDTO(s *model.Screening) ScreeningDTO {
	return ScreeningDTO{
		ID:                s.ID,
		MovieID:           s.MovieID,
		RoomID:            s.RoomID,
		Date:              s.Date,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		PriceRegularCents: s.PriceRegularCents,
		PriceVIPCents:     s.PriceVIPCents,
		Language:          s.Language,
		Format:            s.Format,
		AvailableSeats:    s.AvailableSeats,
		Status:            string(s.Status),
		CreatedAt:         s.CreatedAt,
	}
}

type RoomDTO struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	HasVIP   bool   `json:"has_vip"`
	Has3D    bool   `json:"has_3d"`
	HasIMAX  bool   `json:"has_imax"`
	Status   string `json:"status"`
}

func toRoomDTO(r *model.Room) RoomDTO {
	return RoomDTO{
		ID:       r.ID,
		Name:     r.Name,
		Capacity: r.Capacity,
		HasVIP:   r.HasVIP,
		Has3D:    r.Has3D,
		HasIMAX:  r.HasIMAX,
		Status:   string(r.Status),
	}
}

type CustomerDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type TicketDTO struct {
	ID             string      `json:"id"`
	Code           string      `json:"ticket_code"`
	ScreeningID    uint64      `json:"screening_id"`
	Seats          []string    `json:"seats"`
	TicketType     string      `json:"ticket_type"`
	UnitPriceCents int64       `json:"unit_price_cents"`
	PricePaidCents int64       `json:"price_paid_cents"`
	Customer       CustomerDTO `json:"customer"`
	UserID         *uint64     `json:"user_id,omitempty"`
	Status         string      `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	CancelledAt    *time.Time  `json:"cancelled_at,omitempty"`
}

func toTicketDTO(t *model.Ticket) TicketDTO {
	return TicketDTO{
		ID:             t.ID,
		Code:           t.Code,
		ScreeningID:    t.ScreeningID,
		Seats:          t.Seats,
		TicketType:     string(t.TicketType),
		UnitPriceCents: t.UnitPriceCents,
		PricePaidCents: t.PricePaidCents,
		Customer:       CustomerDTO{Name: t.Customer.Name, Email: t.Customer.Email, Phone: t.Customer.Phone},
		UserID:         t.UserID,
		Status:         string(t.Status),
		CreatedAt:      t.CreatedAt,
		CancelledAt:    t.CancelledAt,
	}
}

func toTicketDTOs(ts []model.Ticket) []TicketDTO {
	out := make([]TicketDTO, 0, len(ts))
	for i := range ts {
		out = append(out, toTicketDTO(&ts[i]))
	}
	return out
}

type holdResponse struct {
	ScreeningID uint64    `json:"screening_id"`
	Held        []string  `json:"held"`
	ExpiresAt   time.Time `json:"expires_at"`
	TTLSeconds  int64     `json:"ttl_seconds"`
}

type purchaseResponse struct {
	Tickets    []TicketDTO `json:"tickets"`
	TotalCents int64       `json:"total_cents"`
}

type seatMapResponse struct {
	ScreeningID uint64                      `json:"screening_id"`
	Seats       map[string]model.SeatStatus `json:"seats"`
}

type settingsResponse struct {
	HoldTTLSeconds      int64  `json:"hold_ttl_seconds"`
	CancelWindowSeconds int64  `json:"cancel_window_seconds"`
	Timezone            string `json:"timezone"`
}
