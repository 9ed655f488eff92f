package premises

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/calendar"
	"github.com/roosthq/roost/internal/shared"
)

// Service exposes premises/bedspace onboarding and lookup. Lifecycle
// transitions (archive, unarchive, cancel) live in the lifecycle
// package; this service never touches start/end dates after creation.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return calendar.DateOnly(s.now())
}

// Get returns a premises with its bedspaces and derived statuses.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*PremisesResponse, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := NewPremisesResponse(p, s.today())
	return &resp, nil
}

// List returns a page of premises.
func (s *Service) List(ctx context.Context, limit, offset int) ([]PremisesResponse, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	today := s.today()
	result := make([]PremisesResponse, 0, len(items))
	for i := range items {
		result = append(result, NewPremisesResponse(&items[i], today))
	}
	page := 1
	if limit > 0 {
		page = offset/limit + 1
	}
	return result, shared.NewPagination(page, limit, total), nil
}

// Create onboards a new premises.
func (s *Service) Create(ctx context.Context, req CreatePremisesRequest) (*PremisesResponse, error) {
	p := Premises{
		ID:           uuid.New(),
		Reference:    req.Reference,
		AddressLine1: req.AddressLine1,
		Postcode:     req.Postcode,
		StartDate:    calendar.DateOnly(req.StartDate),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return s.Get(ctx, p.ID)
}

// GetBedspace returns a single bedspace with derived status.
func (s *Service) GetBedspace(ctx context.Context, id uuid.UUID) (*BedspaceResponse, error) {
	b, err := s.repo.GetBedspace(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := NewBedspaceResponse(b, s.today())
	return &resp, nil
}

// CreateBedspace onboards a bedspace under an existing premises. The
// bedspace window must sit inside the premises window.
func (s *Service) CreateBedspace(ctx context.Context, premisesID uuid.UUID, req CreateBedspaceRequest) (*BedspaceResponse, error) {
	p, err := s.repo.Get(ctx, premisesID)
	if err != nil {
		return nil, fmt.Errorf("verify premises: %w", err)
	}

	startDate := calendar.DateOnly(req.StartDate)
	verr := &shared.ValidationError{}
	if startDate.Before(p.StartDate) {
		verr.Add("startDate", "beforePremisesStartDate")
	}
	if p.EndDate != nil && !startDate.Before(*p.EndDate) {
		verr.Add("startDate", "afterPremisesEndDate")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	b := Bedspace{
		ID:         uuid.New(),
		PremisesID: premisesID,
		Reference:  req.Reference,
		StartDate:  startDate,
	}
	if err := s.repo.CreateBedspace(ctx, b); err != nil {
		return nil, err
	}
	return s.GetBedspace(ctx, b.ID)
}
