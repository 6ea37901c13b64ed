package scheduling

import (
	"fmt"
	"time"
)

// AgencyType distinguishes agencies inside the campus from outer ones.
type AgencyType string

const (
	AgencyInnopolis AgencyType = "innopolis"
	AgencyOuter     AgencyType = "outer"
)

func (t AgencyType) Valid() bool {
	return t == AgencyInnopolis || t == AgencyOuter
}

// Agency is a tour operator allowed to book excursion slots.
type Agency struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      AgencyType `json:"agency_type"`
	CreatedAt time.Time  `json:"created_at"`
}

// SlotCategory groups time slots that share one capacity figure, e.g.
// weekday vs weekend slots.
type SlotCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// TimeSlot is one bookable half-hour window on a concrete date. The time
// of day is kept as an "HH:MM" string; the date carries no time part.
type TimeSlot struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"slot_date"`
	Time       string    `json:"slot_time"`
	CategoryID int64     `json:"category_id"`
}

// Booking reserves part of a slot's capacity for one agency.
type Booking struct {
	ID                int64     `json:"id"`
	TimeSlotID        int64     `json:"time_slot_id"`
	AgencyID          int64     `json:"agency_id"`
	ParticipantsCount int       `json:"participants_count"`
	CreatedAt         time.Time `json:"created_at"`
}

// SlotCapacity is the per-slot view served to agency managers: remaining
// capacity is the category capacity minus the sum of booked participants.
type SlotCapacity struct {
	ID       int64  `json:"id"`
	SlotTime string `json:"slot_time"`
	Capacity int    `json:"capacity"`
}

// DateOnly formats a date the way slot_date is stored.
func DateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}

// ClockTime formats hour/minute as a slot_time value.
func ClockTime(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}
