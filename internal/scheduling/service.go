package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Slot grid: half-hour windows from 07:30 to 18:00 inclusive, weekdays
// and weekends drawing capacity from separate categories.
const (
	slotStartHour   = 7
	slotStartMinute = 30
	slotEndHour     = 18
	slotEndMinute   = 0
	slotStep        = 30 * time.Minute

	weekdayCategoryID = 1
	weekendCategoryID = 2

	// SeedHorizonDays is how far ahead the initial slot grid extends.
	SeedHorizonDays = 182
)

// Service carries the scheduling domain rules over a Store.
type Service struct {
	store Store
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the scheduling service.
func NewService(store Store, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("scheduling: store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterAgency creates an agency; names are unique.
func (s *Service) RegisterAgency(ctx context.Context, name string, typ AgencyType) (*Agency, error) {
	name = strings.TrimSpace(name)
	if name == "" || !typ.Valid() {
		return nil, ErrInvalidInput
	}
	a := &Agency{Name: name, Type: typ}
	if err := s.store.Agencies(ctx).Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateAgency rewrites name and type of an existing agency.
func (s *Service) UpdateAgency(ctx context.Context, id int64, name string, typ AgencyType) (*Agency, error) {
	name = strings.TrimSpace(name)
	if id == 0 || name == "" || !typ.Valid() {
		return nil, ErrInvalidInput
	}
	a := &Agency{ID: id, Name: name, Type: typ}
	if err := s.store.Agencies(ctx).Update(ctx, a); err != nil {
		return nil, err
	}
	return s.store.Agencies(ctx).Find(ctx, id)
}

// DeleteAgency removes an agency.
func (s *Service) DeleteAgency(ctx context.Context, id int64) error {
	if id == 0 {
		return ErrInvalidInput
	}
	return s.store.Agencies(ctx).Delete(ctx, id)
}

// GetAgency resolves an agency by id. Served over the internal endpoint
// to the auth service.
func (s *Service) GetAgency(ctx context.Context, id int64) (*Agency, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	return s.store.Agencies(ctx).Find(ctx, id)
}

// CreateCategory adds a slot category; names are unique.
func (s *Service) CreateCategory(ctx context.Context, name string, capacity int) (*SlotCategory, error) {
	name = strings.TrimSpace(name)
	if name == "" || capacity <= 0 {
		return nil, ErrInvalidInput
	}
	c := &SlotCategory{Name: name, Capacity: capacity}
	if err := s.store.Categories(ctx).Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCategory rewrites name and capacity of an existing category.
// Capacity changes apply to future availability arithmetic immediately;
// existing bookings are never revoked.
func (s *Service) UpdateCategory(ctx context.Context, id int64, name string, capacity int) (*SlotCategory, error) {
	name = strings.TrimSpace(name)
	if id == 0 || name == "" || capacity <= 0 {
		return nil, ErrInvalidInput
	}
	c := &SlotCategory{ID: id, Name: name, Capacity: capacity}
	if err := s.store.Categories(ctx).Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DayInfo lists the day's slots with remaining capacity. A day with no
// slots at all yields ErrNoTimeSlots.
func (s *Service) DayInfo(ctx context.Context, day time.Time) ([]SlotCapacity, error) {
	slots, err := s.store.TimeSlots(ctx).DayCapacity(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, ErrNoTimeSlots
	}
	return slots, nil
}

// Book reserves capacity in a slot for the agency. The store enforces
// the remaining-capacity bound atomically.
func (s *Service) Book(ctx context.Context, slotID, agencyID int64, participants int) (*Booking, error) {
	if slotID == 0 || agencyID == 0 || participants <= 0 {
		return nil, ErrInvalidInput
	}
	b := &Booking{TimeSlotID: slotID, AgencyID: agencyID, ParticipantsCount: participants}
	if err := s.store.TimeSlots(ctx).Book(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SeedSlots fills the slot grid from today over the horizon, skipping
// dates that already have slots so repeated runs are idempotent. It
// returns the number of slots created.
func (s *Service) SeedSlots(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = SeedHorizonDays
	}
	start := s.now()
	created := 0
	for offset := 0; offset < days; offset++ {
		day := start.AddDate(0, 0, offset)
		n, err := s.store.TimeSlots(ctx).CountOnDate(ctx, day)
		if err != nil {
			return created, err
		}
		if n > 0 {
			continue
		}
		slots := daySlots(day)
		if err := s.store.TimeSlots(ctx).Insert(ctx, slots); err != nil {
			return created, err
		}
		created += len(slots)
	}
	return created, nil
}

// daySlots generates the slot grid for one date.
func daySlots(day time.Time) []TimeSlot {
	categoryID := int64(weekdayCategoryID)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		categoryID = weekendCategoryID
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), slotStartHour, slotStartMinute, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), slotEndHour, slotEndMinute, 0, 0, time.UTC)

	var slots []TimeSlot
	for at := start; !at.After(end); at = at.Add(slotStep) {
		slots = append(slots, TimeSlot{
			Date:       day,
			Time:       ClockTime(at.Hour(), at.Minute()),
			CategoryID: categoryID,
		})
	}
	return slots
}
