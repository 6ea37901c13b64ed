package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	svc, err := NewService(NewPGStore(db), opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, mock, func() { db.Close() }
}

func TestDaySlotsGrid(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	slots := daySlots(monday)

	// 07:30 through 18:00 inclusive in 30-minute steps.
	if len(slots) != 22 {
		t.Fatalf("expected 22 slots, got %d", len(slots))
	}
	if slots[0].Time != "07:30" {
		t.Fatalf("first slot at %s", slots[0].Time)
	}
	if slots[len(slots)-1].Time != "18:00" {
		t.Fatalf("last slot at %s", slots[len(slots)-1].Time)
	}
	for _, slot := range slots {
		if slot.CategoryID != weekdayCategoryID {
			t.Fatalf("weekday slot got category %d", slot.CategoryID)
		}
	}

	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	for _, slot := range daySlots(saturday) {
		if slot.CategoryID != weekendCategoryID {
			t.Fatalf("weekend slot got category %d", slot.CategoryID)
		}
	}
}

func TestDayInfo(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select t.id, to_char").
		WithArgs("2026-03-02").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_time", "capacity"}).
			AddRow(int64(1), "07:30", 40).
			AddRow(int64(2), "08:00", 25))

	slots, err := svc.DayInfo(context.Background(), day)
	if err != nil {
		t.Fatalf("DayInfo: %v", err)
	}
	if len(slots) != 2 || slots[0].SlotTime != "07:30" || slots[1].Capacity != 25 {
		t.Fatalf("unexpected slots: %+v", slots)
	}
}

func TestDayInfoEmptyDay(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("select t.id, to_char").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slot_time", "capacity"}))

	_, err := svc.DayInfo(context.Background(), time.Now())
	if !errors.Is(err, ErrNoTimeSlots) {
		t.Fatalf("expected ErrNoTimeSlots, got %v", err)
	}
}

func TestBook(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	// The slot row stays locked for the whole check-then-insert
	// transaction.
	mock.ExpectBegin()
	mock.ExpectQuery("select c.capacity").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
	mock.ExpectQuery("select coalesce").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(30))
	mock.ExpectQuery("insert into bookings").
		WithArgs(int64(5), int64(3), 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(77), time.Now()))
	mock.ExpectCommit()

	b, err := svc.Book(context.Background(), 5, 3, 10)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if b.ID != 77 || b.ParticipantsCount != 10 {
		t.Fatalf("unexpected booking: %+v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookSlotFull(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	// Capacity 40 with 31 already booked leaves room for 9, not 10.
	// Nothing is inserted and the transaction rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery("select c.capacity").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(40))
	mock.ExpectQuery("select coalesce").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"booked"}).AddRow(31))
	mock.ExpectRollback()

	if _, err := svc.Book(context.Background(), 5, 3, 10); !errors.Is(err, ErrSlotFull) {
		t.Fatalf("expected ErrSlotFull, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBookUnknownSlot(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("select c.capacity").
		WithArgs(int64(999)).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}))
	mock.ExpectRollback()

	if _, err := svc.Book(context.Background(), 999, 3, 1); !errors.Is(err, ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestBookInvalidInput(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	if _, err := svc.Book(context.Background(), 5, 3, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store was touched for invalid input: %v", err)
	}
}

func TestRegisterAgency(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("insert into agencies").
		WithArgs("Wonder Tours", AgencyOuter).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(9), time.Now()))

	a, err := svc.RegisterAgency(context.Background(), "Wonder Tours", AgencyOuter)
	if err != nil {
		t.Fatalf("RegisterAgency: %v", err)
	}
	if a.ID != 9 {
		t.Fatalf("unexpected agency: %+v", a)
	}
}

func TestRegisterAgencyDuplicate(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("insert into agencies").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "agencies_name_key"})

	if _, err := svc.RegisterAgency(context.Background(), "Wonder Tours", AgencyInnopolis); !errors.Is(err, ErrAgencyExists) {
		t.Fatalf("expected ErrAgencyExists, got %v", err)
	}
}

func TestRegisterAgencyInvalidType(t *testing.T) {
	svc, _, done := newTestService(t)
	defer done()

	if _, err := svc.RegisterAgency(context.Background(), "X", AgencyType("orbital")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateAgencyNotFound(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectExec("update agencies set").
		WithArgs(int64(4), "New Name", AgencyInnopolis).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if _, err := svc.UpdateAgency(context.Background(), 4, "New Name", AgencyInnopolis); !errors.Is(err, ErrAgencyNotFound) {
		t.Fatalf("expected ErrAgencyNotFound, got %v", err)
	}
}

func TestCreateCategory(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectQuery("insert into slot_categories").
		WithArgs("weekday", 40).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	c, err := svc.CreateCategory(context.Background(), "weekday", 40)
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if c.ID != 1 || c.Capacity != 40 {
		t.Fatalf("unexpected category: %+v", c)
	}

	if _, err := svc.CreateCategory(context.Background(), "zero", 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSeedSlotsIdempotent(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc, mock, done := newTestService(t, WithClock(func() time.Time { return start }))
	defer done()

	// Day one is empty and gets the full grid.
	mock.ExpectQuery("select count").
		WithArgs("2026-03-02").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("insert into time_slots")
	for i := 0; i < 22; i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	// Day two is already seeded and is skipped.
	mock.ExpectQuery("select count").
		WithArgs("2026-03-03").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(22))

	created, err := svc.SeedSlots(context.Background(), 2)
	if err != nil {
		t.Fatalf("SeedSlots: %v", err)
	}
	if created != 22 {
		t.Fatalf("expected 22 created slots, got %d", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
