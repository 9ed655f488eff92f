package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roosthq/roost/internal/platform/db"
	"github.com/roosthq/roost/internal/shared"
)

// Repository provides booking/void persistence plus the occupancy query
// surface the lifecycle conflict detector consumes.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	LockPremises(ctx context.Context, premisesID uuid.UUID) error

	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	CreateBooking(ctx context.Context, b Booking) error
	CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) error
	BookingsInRange(ctx context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]Booking, error)

	GetVoid(ctx context.Context, id uuid.UUID) (*VoidPeriod, error)
	CreateVoid(ctx context.Context, v VoidPeriod) error
	CancelVoid(ctx context.Context, id uuid.UUID, at time.Time) error
	VoidsInRange(ctx context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]VoidPeriod, error)

	OverlappingBookings(ctx context.Context, scope Scope, onOrAfter time.Time) ([]Booking, error)
	LatestVoid(ctx context.Context, scope Scope, onOrAfter time.Time) (*VoidPeriod, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// LockPremises serializes booking/void writes against lifecycle
// decisions for the same premises. Must run inside WithTx.
func (r *repository) LockPremises(ctx context.Context, premisesID uuid.UUID) error {
	tx, ok := r.db.(pgx.Tx)
	if !ok {
		return errors.New("bookings: LockPremises requires a transaction")
	}
	return db.AcquireResourceLock(ctx, tx, db.ResourceLockKey("premises", premisesID.String()))
}

const bookingColumns = `id, bedspace_id, arrival_date, departure_date, turnaround_working_days, cancelled_at, created_at`

func (r *repository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var b Booking
	err := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.BedspaceID, &b.ArrivalDate, &b.DepartureDate, &b.TurnaroundWorkingDays, &b.CancelledAt, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) CreateBooking(ctx context.Context, b Booking) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO bookings (id, bedspace_id, arrival_date, departure_date, turnaround_working_days)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.BedspaceID, b.ArrivalDate, b.DepartureDate, b.TurnaroundWorkingDays)
	return err
}

func (r *repository) CancelBooking(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET cancelled_at = $2 WHERE id = $1 AND cancelled_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) BookingsInRange(ctx context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE bedspace_id = $1 AND cancelled_at IS NULL
		   AND arrival_date <= $3 AND departure_date >= $2
		 ORDER BY arrival_date`, bedspaceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

const voidColumns = `id, bedspace_id, start_date, end_date, reason, cancelled_at, created_at`

func (r *repository) GetVoid(ctx context.Context, id uuid.UUID) (*VoidPeriod, error) {
	var v VoidPeriod
	err := r.db.QueryRow(ctx, `SELECT `+voidColumns+` FROM void_periods WHERE id = $1`, id).
		Scan(&v.ID, &v.BedspaceID, &v.StartDate, &v.EndDate, &v.Reason, &v.CancelledAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) CreateVoid(ctx context.Context, v VoidPeriod) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO void_periods (id, bedspace_id, start_date, end_date, reason)
		 VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.BedspaceID, v.StartDate, v.EndDate, v.Reason)
	return err
}

func (r *repository) CancelVoid(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE void_periods SET cancelled_at = $2 WHERE id = $1 AND cancelled_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) VoidsInRange(ctx context.Context, bedspaceID uuid.UUID, start, end time.Time) ([]VoidPeriod, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+voidColumns+` FROM void_periods
		 WHERE bedspace_id = $1 AND cancelled_at IS NULL
		   AND start_date <= $3 AND end_date >= $2
		 ORDER BY start_date`, bedspaceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVoids(rows)
}

// OverlappingBookings returns non-cancelled bookings whose occupancy
// may overlap or extend past the given date, departure date descending.
// Turnaround days cannot be resolved to calendar days in SQL, so the
// window over-fetches at two calendar days per working day plus a
// weekend margin; the caller applies the exact working-day cutoff.
func (r *repository) OverlappingBookings(ctx context.Context, scope Scope, onOrAfter time.Time) ([]Booking, error) {
	query := `SELECT b.id, b.bedspace_id, b.arrival_date, b.departure_date, b.turnaround_working_days, b.cancelled_at, b.created_at
		 FROM bookings b`
	var args []interface{}
	if scope.BedspaceID != uuid.Nil {
		query += ` WHERE b.bedspace_id = $1`
		args = append(args, scope.BedspaceID)
	} else {
		query += ` JOIN bedspaces bs ON bs.id = b.bedspace_id WHERE bs.premises_id = $1`
		args = append(args, scope.PremisesID)
	}
	query += ` AND b.cancelled_at IS NULL
		 AND b.departure_date >= ($2::date - make_interval(days => b.turnaround_working_days * 2 + 4))
		 ORDER BY b.departure_date DESC`
	args = append(args, onOrAfter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// LatestVoid returns the non-cancelled void period with the latest end
// date on or after the given date, or nil.
func (r *repository) LatestVoid(ctx context.Context, scope Scope, onOrAfter time.Time) (*VoidPeriod, error) {
	query := `SELECT v.id, v.bedspace_id, v.start_date, v.end_date, v.reason, v.cancelled_at, v.created_at
		 FROM void_periods v`
	var args []interface{}
	if scope.BedspaceID != uuid.Nil {
		query += ` WHERE v.bedspace_id = $1`
		args = append(args, scope.BedspaceID)
	} else {
		query += ` JOIN bedspaces bs ON bs.id = v.bedspace_id WHERE bs.premises_id = $1`
		args = append(args, scope.PremisesID)
	}
	query += ` AND v.cancelled_at IS NULL AND v.end_date >= $2
		 ORDER BY v.end_date DESC LIMIT 1`
	args = append(args, onOrAfter)

	var v VoidPeriod
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&v.ID, &v.BedspaceID, &v.StartDate, &v.EndDate, &v.Reason, &v.CancelledAt, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.BedspaceID, &b.ArrivalDate, &b.DepartureDate, &b.TurnaroundWorkingDays, &b.CancelledAt, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func scanVoids(rows pgx.Rows) ([]VoidPeriod, error) {
	var result []VoidPeriod
	for rows.Next() {
		var v VoidPeriod
		if err := rows.Scan(&v.ID, &v.BedspaceID, &v.StartDate, &v.EndDate, &v.Reason, &v.CancelledAt, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}
