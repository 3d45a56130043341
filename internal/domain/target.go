package domain

import "fmt"

type TargetKind int

const (
	// TargetUnassigned marks a request still awaiting triage by the
	// operator: neither a room nor the whole venue has been chosen.
	TargetUnassigned TargetKind = iota
	TargetRoom
	TargetWholeVenue
)

// BookingTarget is the tagged variant replacing the nullable room /
// full_restaurant column pair: Unassigned, Room(id) or WholeVenue.
type BookingTarget struct {
	Kind   TargetKind
	RoomID int64
}

func UnassignedTarget() BookingTarget {
	return BookingTarget{Kind: TargetUnassigned}
}

func RoomTarget(roomID int64) BookingTarget {
	return BookingTarget{Kind: TargetRoom, RoomID: roomID}
}

func WholeVenueTarget() BookingTarget {
	return BookingTarget{Kind: TargetWholeVenue}
}

func (t BookingTarget) IsRoom() bool       { return t.Kind == TargetRoom }
func (t BookingTarget) IsWholeVenue() bool { return t.Kind == TargetWholeVenue }
func (t BookingTarget) IsUnassigned() bool { return t.Kind == TargetUnassigned }

func (t BookingTarget) String() string {
	switch t.Kind {
	case TargetRoom:
		return fmt.Sprintf("room %d", t.RoomID)
	case TargetWholeVenue:
		return "whole venue"
	default:
		return "unassigned"
	}
}
