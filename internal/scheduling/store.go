package scheduling

import (
	"context"
	"time"
)

// Store describes persistence operations required by the scheduling
// subsystem.
type Store interface {
	Agencies(ctx context.Context) AgencyStore
	Categories(ctx context.Context) CategoryStore
	TimeSlots(ctx context.Context) TimeSlotStore
}

// AgencyStore manages agency records.
type AgencyStore interface {
	// Create inserts an agency; a duplicate name yields ErrAgencyExists.
	Create(ctx context.Context, a *Agency) error
	Find(ctx context.Context, id int64) (*Agency, error)
	Update(ctx context.Context, a *Agency) error
	Delete(ctx context.Context, id int64) error
}

// CategoryStore manages slot categories.
type CategoryStore interface {
	// Create inserts a category; a duplicate name yields ErrCategoryExists.
	Create(ctx context.Context, c *SlotCategory) error
	Update(ctx context.Context, c *SlotCategory) error
}

// TimeSlotStore manages slots and their bookings.
type TimeSlotStore interface {
	// DayCapacity lists every slot of the day with its remaining capacity,
	// ordered by slot time. An empty day returns an empty slice, not an
	// error; the service layer decides what that means.
	DayCapacity(ctx context.Context, day time.Time) ([]SlotCapacity, error)

	// Book inserts a booking only if the slot still has room for the
	// requested participant count. The check and insert run in one
	// transaction holding a lock on the slot row, so concurrent bookings
	// serialize and cannot jointly oversell a slot. Insufficient
	// capacity yields ErrSlotFull, a missing slot ErrSlotNotFound.
	Book(ctx context.Context, b *Booking) error

	// Insert adds generated slots in one transaction.
	Insert(ctx context.Context, slots []TimeSlot) error

	// CountOnDate reports how many slots already exist for the date, used
	// to keep seeding idempotent.
	CountOnDate(ctx context.Context, day time.Time) (int, error)
}
