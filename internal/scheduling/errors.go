package scheduling

import "errors"

var (
	ErrAgencyExists     = errors.New("scheduling: agency already registered")
	ErrAgencyNotFound   = errors.New("scheduling: agency not found")
	ErrCategoryExists   = errors.New("scheduling: category already exists")
	ErrCategoryNotFound = errors.New("scheduling: category not found")
	ErrNoTimeSlots      = errors.New("scheduling: no time slots for requested day")
	ErrSlotNotFound     = errors.New("scheduling: time slot not found")
	ErrSlotFull         = errors.New("scheduling: not enough capacity left in slot")
	ErrInvalidInput     = errors.New("scheduling: invalid input")
)
