package premises

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roosthq/roost/internal/shared"
)

// Repository provides read/write access to premises and bedspaces.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Premises, error)
	List(ctx context.Context, limit, offset int) ([]Premises, int, error)
	Create(ctx context.Context, p Premises) error
	GetBedspace(ctx context.Context, id uuid.UUID) (*Bedspace, error)
	BedspacesByPremises(ctx context.Context, premisesID uuid.UUID) ([]Bedspace, error)
	CreateBedspace(ctx context.Context, b Bedspace) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const premisesColumns = `id, reference, address_line1, postcode, start_date, end_date, created_at, updated_at`

func scanPremises(row pgx.Row) (*Premises, error) {
	var p Premises
	err := row.Scan(&p.ID, &p.Reference, &p.AddressLine1, &p.Postcode, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Premises, error) {
	p, err := scanPremises(r.pool.QueryRow(ctx,
		`SELECT `+premisesColumns+` FROM premises WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	bedspaces, err := r.BedspacesByPremises(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Bedspaces = bedspaces
	return p, nil
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Premises, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM premises`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+premisesColumns+` FROM premises ORDER BY reference LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Premises
	for rows.Next() {
		var p Premises
		if err := rows.Scan(&p.ID, &p.Reference, &p.AddressLine1, &p.Postcode, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Premises) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO premises (id, reference, address_line1, postcode, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Reference, p.AddressLine1, p.Postcode, p.StartDate, p.EndDate)
	if err != nil {
		return fmt.Errorf("create premises: %w", err)
	}
	return nil
}

func (r *repository) GetBedspace(ctx context.Context, id uuid.UUID) (*Bedspace, error) {
	var b Bedspace
	err := r.pool.QueryRow(ctx,
		`SELECT id, premises_id, reference, start_date, end_date, created_at FROM bedspaces WHERE id = $1`, id).
		Scan(&b.ID, &b.PremisesID, &b.Reference, &b.StartDate, &b.EndDate, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) BedspacesByPremises(ctx context.Context, premisesID uuid.UUID) ([]Bedspace, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, premises_id, reference, start_date, end_date, created_at
		 FROM bedspaces WHERE premises_id = $1 ORDER BY reference, created_at`, premisesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Bedspace
	for rows.Next() {
		var b Bedspace
		if err := rows.Scan(&b.ID, &b.PremisesID, &b.Reference, &b.StartDate, &b.EndDate, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *repository) CreateBedspace(ctx context.Context, b Bedspace) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bedspaces (id, premises_id, reference, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.ID, b.PremisesID, b.Reference, b.StartDate, b.EndDate)
	if err != nil {
		return fmt.Errorf("create bedspace: %w", err)
	}
	return nil
}
