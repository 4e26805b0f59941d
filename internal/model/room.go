package model

import (
	"fmt"
	"time"
)

// RoomStatus is the operational state of a room.
type RoomStatus string

const (
	RoomActive      RoomStatus = "active"
	RoomMaintenance RoomStatus = "maintenance"
	RoomClosed      RoomStatus = "closed"
)

var roomTransitions = map[RoomStatus][]RoomStatus{
	RoomActive:      {RoomMaintenance, RoomClosed},
	RoomMaintenance: {RoomActive, RoomClosed},
	RoomClosed:      {RoomActive, RoomMaintenance},
}

// ParseRoomStatus converts a raw string into a RoomStatus.
func ParseRoomStatus(s string) (RoomStatus, error) {
	st := RoomStatus(s)
	if _, ok := roomTransitions[st]; !ok {
		return "", fmt.Errorf("%w: room status %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s RoomStatus) CanTransitionTo(target RoomStatus) bool {
	for _, allowed := range roomTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// RequiresIdleSchedule reports whether entering s demands that the room has
// no future scheduled screenings.
func (s RoomStatus) RequiresIdleSchedule() bool {
	return s == RoomMaintenance || s == RoomClosed
}

// Room is a screening room.  Rooms are supplied by catalog sync; this
// service only reads them, apart from operator status changes.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name.
//  Capacity – total number of sellable seats.
//  HasVIP   – room has a VIP section.
//  Has3D    – room can project 3D.
//  HasIMAX  – room is IMAX equipped.
//  Status   – operational status.
type Room struct {
	ID        uint64
	Name      string
	Capacity  int
	HasVIP    bool
	Has3D     bool
	HasIMAX   bool
	Status    RoomStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
