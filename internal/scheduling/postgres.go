package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

const pgUniqueViolation = "23505"

// PGStore implements Store using PostgreSQL via database/sql.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Agencies(context.Context) AgencyStore     { return &agencyStore{db: s.db} }
func (s *PGStore) Categories(context.Context) CategoryStore { return &categoryStore{db: s.db} }
func (s *PGStore) TimeSlots(context.Context) TimeSlotStore  { return &timeSlotStore{db: s.db} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// Agency store --------------------------------------------------------------
type agencyStore struct{ db *sql.DB }

func (s *agencyStore) Create(ctx context.Context, a *Agency) error {
	row := s.db.QueryRowContext(ctx,
		`insert into agencies(name, agency_type) values($1,$2) returning id, created_at`,
		a.Name, a.Type,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrAgencyExists
		}
		return err
	}
	return nil
}

func (s *agencyStore) Find(ctx context.Context, id int64) (*Agency, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, agency_type, created_at from agencies where id=$1`, id)
	var a Agency
	if err := row.Scan(&a.ID, &a.Name, &a.Type, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAgencyNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *agencyStore) Update(ctx context.Context, a *Agency) error {
	res, err := s.db.ExecContext(ctx,
		`update agencies set name=$2, agency_type=$3 where id=$1`,
		a.ID, a.Name, a.Type,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAgencyExists
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAgencyNotFound
	}
	return nil
}

func (s *agencyStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from agencies where id=$1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAgencyNotFound
	}
	return nil
}

// Category store ------------------------------------------------------------
type categoryStore struct{ db *sql.DB }

func (s *categoryStore) Create(ctx context.Context, c *SlotCategory) error {
	row := s.db.QueryRowContext(ctx,
		`insert into slot_categories(name, capacity) values($1,$2) returning id`,
		c.Name, c.Capacity,
	)
	if err := row.Scan(&c.ID); err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryExists
		}
		return err
	}
	return nil
}

func (s *categoryStore) Update(ctx context.Context, c *SlotCategory) error {
	res, err := s.db.ExecContext(ctx,
		`update slot_categories set name=$2, capacity=$3 where id=$1`,
		c.ID, c.Name, c.Capacity,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryExists
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// Time slot store -----------------------------------------------------------
type timeSlotStore struct{ db *sql.DB }

func (s *timeSlotStore) DayCapacity(ctx context.Context, day time.Time) ([]SlotCapacity, error) {
	rows, err := s.db.QueryContext(ctx,
		`select t.id, to_char(t.slot_time, 'HH24:MI'),
		        c.capacity - coalesce(sum(b.participants_count), 0)
		 from time_slots t
		 join slot_categories c on c.id = t.category_id
		 left join bookings b on b.time_slot_id = t.id
		 where t.slot_date = $1
		 group by t.id, t.slot_time, c.capacity
		 order by t.slot_time`,
		DateOnly(day),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotCapacity
	for rows.Next() {
		var sc SlotCapacity
		if err := rows.Scan(&sc.ID, &sc.SlotTime, &sc.Capacity); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *timeSlotStore) Book(ctx context.Context, b *Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the slot row first. Under READ COMMITTED a plain conditional
	// insert would let two concurrent bookings read the same remaining
	// figure and jointly oversell; serializing writers on the slot row
	// keeps the capacity read below valid until commit.
	var capacity int
	err = tx.QueryRowContext(ctx,
		`select c.capacity
		 from time_slots t
		 join slot_categories c on c.id = t.category_id
		 where t.id = $1
		 for update of t`,
		b.TimeSlotID,
	).Scan(&capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSlotNotFound
		}
		return err
	}

	var booked int
	err = tx.QueryRowContext(ctx,
		`select coalesce(sum(participants_count), 0) from bookings where time_slot_id = $1`,
		b.TimeSlotID,
	).Scan(&booked)
	if err != nil {
		return err
	}
	if capacity-booked < b.ParticipantsCount {
		return ErrSlotFull
	}

	err = tx.QueryRowContext(ctx,
		`insert into bookings(time_slot_id, agency_id, participants_count)
		 values($1, $2, $3) returning id, created_at`,
		b.TimeSlotID, b.AgencyID, b.ParticipantsCount,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *timeSlotStore) Insert(ctx context.Context, slots []TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`insert into time_slots(slot_date, slot_time, category_id) values($1, $2, $3)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, slot := range slots {
		if _, err := stmt.ExecContext(ctx, DateOnly(slot.Date), slot.Time, slot.CategoryID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *timeSlotStore) CountOnDate(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from time_slots where slot_date=$1`, DateOnly(day)).Scan(&n)
	return n, err
}
