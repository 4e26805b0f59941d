package service

import (
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
)

// DefaultVIPPrice returns round(1.5 × regular) in cents.
func DefaultVIPPrice(regular int64) int64 {
	return roundRatio(regular, 15, 10)
}

// UnitPrice returns the per-seat price of ticketType at screening s.
// Student and senior pay round(0.8 × regular); unknown codes pay regular.
func UnitPrice(s *model.Screening, ticketType model.TicketType) int64 {
	switch ticketType {
	case model.TicketTypeVIP:
		return s.PriceVIPCents
	case model.TicketTypeStudent, model.TicketTypeSenior:
		return roundRatio(s.PriceRegularCents, 8, 10)
	default:
		return s.PriceRegularCents
	}
}

// NormalizeTicketType lower-cases the code and maps empty to regular.
func NormalizeTicketType(raw string) model.TicketType {
	code := strings.ToLower(strings.TrimSpace(raw))
	if code == "" {
		return model.TicketTypeRegular
	}
	return model.TicketType(code)
}

// roundRatio computes round(v × num / den) with halves rounded away from
// zero, in integer arithmetic.
func roundRatio(v, num, den int64) int64 {
	p := v * num
	if p >= 0 {
		return (p + den/2) / den
	}
	return -((-p + den/2) / den)
}
