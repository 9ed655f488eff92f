package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roosthq/roost/internal/platform/db"
	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type store struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewStore returns the pgx-backed Store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{db: pool, pool: pool}
}

func (s *store) WithTx(ctx context.Context, fn func(context.Context, Store) error) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &store{db: tx, pool: s.pool})
	})
}

// LockPremises takes the per-premises advisory lock. All lifecycle
// writes for a premises subtree funnel through this lock, so the
// detector's read-then-decide window is safe from concurrent writers.
func (s *store) LockPremises(ctx context.Context, id uuid.UUID) error {
	tx, ok := s.db.(pgx.Tx)
	if !ok {
		return errors.New("lifecycle: LockPremises requires a transaction")
	}
	return db.AcquireResourceLock(ctx, tx, db.ResourceLockKey("premises", id.String()))
}

func (s *store) GetPremises(ctx context.Context, id uuid.UUID) (*premises.Premises, error) {
	var p premises.Premises
	err := s.db.QueryRow(ctx,
		`SELECT id, reference, address_line1, postcode, start_date, end_date, created_at, updated_at
		 FROM premises WHERE id = $1`, id).
		Scan(&p.ID, &p.Reference, &p.AddressLine1, &p.Postcode, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *store) GetBedspace(ctx context.Context, id uuid.UUID) (*premises.Bedspace, error) {
	var b premises.Bedspace
	err := s.db.QueryRow(ctx,
		`SELECT id, premises_id, reference, start_date, end_date, created_at
		 FROM bedspaces WHERE id = $1`, id).
		Scan(&b.ID, &b.PremisesID, &b.Reference, &b.StartDate, &b.EndDate, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *store) BedspacesByPremises(ctx context.Context, premisesID uuid.UUID) ([]premises.Bedspace, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, premises_id, reference, start_date, end_date, created_at
		 FROM bedspaces WHERE premises_id = $1 ORDER BY reference, created_at`, premisesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBedspaces(rows)
}

// LatestBedspacePerReference collapses duplicate historical bedspace
// rows to the most recently archived row per distinct reference.
func (s *store) LatestBedspacePerReference(ctx context.Context, premisesID uuid.UUID) ([]premises.Bedspace, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT ON (reference) id, premises_id, reference, start_date, end_date, created_at
		 FROM bedspaces WHERE premises_id = $1
		 ORDER BY reference, end_date DESC NULLS FIRST, created_at DESC`, premisesID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBedspaces(rows)
}

func (s *store) UpdatePremisesWindow(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE premises SET start_date = $2, end_date = $3, updated_at = NOW() WHERE id = $1`, id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *store) UpdateBedspaceWindow(ctx context.Context, id uuid.UUID, start time.Time, end *time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE bedspaces SET start_date = $2, end_date = $3 WHERE id = $1`, id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (s *store) AppendEvent(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO lifecycle_events (id, resource_type, resource_id, premises_id, kind, transaction_id, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.ResourceType, ev.ResourceID, ev.PremisesID, ev.Kind, ev.TransactionID, payload, ev.CreatedAt)
	return err
}

func (s *store) LatestActiveEvent(ctx context.Context, rt ResourceType, id uuid.UUID, kind Kind) (*Event, error) {
	ev, err := scanEvent(s.db.QueryRow(ctx,
		`SELECT id, resource_type, resource_id, premises_id, kind, transaction_id, payload, created_at, cancelled_at
		 FROM lifecycle_events
		 WHERE resource_type = $1 AND resource_id = $2 AND kind = $3 AND cancelled_at IS NULL
		 ORDER BY created_at DESC LIMIT 1`, rt, id, kind))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

func (s *store) EventsByTransaction(ctx context.Context, transactionID uuid.UUID) ([]Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, resource_type, resource_id, premises_id, kind, transaction_id, payload, created_at, cancelled_at
		 FROM lifecycle_events WHERE transaction_id = $1 ORDER BY created_at`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var ev Event
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.ResourceType, &ev.ResourceID, &ev.PremisesID, &ev.Kind, &ev.TransactionID, &payload, &ev.CreatedAt, &ev.CancelledAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// MarkEventCancelled is the only update ever applied to an event row.
func (s *store) MarkEventCancelled(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE lifecycle_events SET cancelled_at = $2 WHERE id = $1 AND cancelled_at IS NULL`, eventID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanEvent(row pgx.Row) (*Event, error) {
	var ev Event
	var payload []byte
	err := row.Scan(&ev.ID, &ev.ResourceType, &ev.ResourceID, &ev.PremisesID, &ev.Kind, &ev.TransactionID, &payload, &ev.CreatedAt, &ev.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(payload, &ev.Payload); err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanBedspaces(rows pgx.Rows) ([]premises.Bedspace, error) {
	var result []premises.Bedspace
	for rows.Next() {
		var b premises.Bedspace
		if err := rows.Scan(&b.ID, &b.PremisesID, &b.Reference, &b.StartDate, &b.EndDate, &b.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}
