package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/calendar"
	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

// Conflict reason codes reported by booking/void creation.
const (
	ReasonExistingBooking = "existingBookings"
	ReasonExistingVoid    = "existingVoid"
)

// Service owns booking and void period creation/cancellation. Writes
// run inside a transaction holding the same per-premises advisory lock
// the lifecycle orchestrator takes, so a booking can never slip in
// while an archive decision is in flight.
type Service struct {
	repo     Repository
	premises premises.Repository
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, premisesRepo premises.Repository) *Service {
	return &Service{repo: repo, premises: premisesRepo, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateBooking validates the window against the bedspace's online
// window and existing occupancy, then persists the booking.
func (s *Service) CreateBooking(ctx context.Context, bedspaceID uuid.UUID, req CreateBookingRequest) (*Booking, error) {
	bedspace, err := s.premises.GetBedspace(ctx, bedspaceID)
	if err != nil {
		return nil, fmt.Errorf("verify bedspace: %w", err)
	}

	arrival := calendar.DateOnly(req.ArrivalDate)
	departure := calendar.DateOnly(req.DepartureDate)

	verr := &shared.ValidationError{}
	if !departure.After(arrival) {
		verr.Add("departureDate", "beforeArrivalDate")
	}
	if arrival.Before(bedspace.StartDate) {
		verr.Add("arrivalDate", "beforeBedspaceStartDate")
	}
	if bedspace.EndDate != nil && !departure.Before(*bedspace.EndDate) {
		verr.Add("departureDate", "afterBedspaceEndDate")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	booking := Booking{
		ID:                    uuid.New(),
		BedspaceID:            bedspaceID,
		ArrivalDate:           arrival,
		DepartureDate:         departure,
		TurnaroundWorkingDays: req.TurnaroundWorkingDays,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.LockPremises(ctx, bedspace.PremisesID); err != nil {
			return err
		}
		if err := s.checkOccupancy(ctx, repo, bedspaceID, arrival, departure); err != nil {
			return err
		}
		return repo.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetBooking(ctx, booking.ID)
}

// CancelBooking marks the booking cancelled.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) error {
	return s.repo.CancelBooking(ctx, id, s.now())
}

// CreateVoid validates and persists a planned unavailability window.
func (s *Service) CreateVoid(ctx context.Context, bedspaceID uuid.UUID, req CreateVoidRequest) (*VoidPeriod, error) {
	bedspace, err := s.premises.GetBedspace(ctx, bedspaceID)
	if err != nil {
		return nil, fmt.Errorf("verify bedspace: %w", err)
	}

	start := calendar.DateOnly(req.StartDate)
	end := calendar.DateOnly(req.EndDate)

	verr := &shared.ValidationError{}
	if end.Before(start) {
		verr.Add("endDate", "beforeStartDate")
	}
	if start.Before(bedspace.StartDate) {
		verr.Add("startDate", "beforeBedspaceStartDate")
	}
	if bedspace.EndDate != nil && !end.Before(*bedspace.EndDate) {
		verr.Add("endDate", "afterBedspaceEndDate")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	void := VoidPeriod{
		ID:         uuid.New(),
		BedspaceID: bedspaceID,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.LockPremises(ctx, bedspace.PremisesID); err != nil {
			return err
		}
		if err := s.checkOccupancy(ctx, repo, bedspaceID, start, end); err != nil {
			return err
		}
		return repo.CreateVoid(ctx, void)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetVoid(ctx, void.ID)
}

// CancelVoid marks the void period cancelled.
func (s *Service) CancelVoid(ctx context.Context, id uuid.UUID) error {
	return s.repo.CancelVoid(ctx, id, s.now())
}

// checkOccupancy rejects any overlap with a non-cancelled booking or
// void period on the same bedspace.
func (s *Service) checkOccupancy(ctx context.Context, repo Repository, bedspaceID uuid.UUID, start, end time.Time) error {
	existing, err := repo.BookingsInRange(ctx, bedspaceID, start, end)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return &shared.ConflictError{
			EntityID:     existing[0].ID,
			Reason:       ReasonExistingBooking,
			EarliestDate: existing[0].DepartureDate.AddDate(0, 0, 1),
		}
	}
	voids, err := repo.VoidsInRange(ctx, bedspaceID, start, end)
	if err != nil {
		return err
	}
	if len(voids) > 0 {
		return &shared.ConflictError{
			EntityID:     voids[0].ID,
			Reason:       ReasonExistingVoid,
			EarliestDate: voids[0].EndDate.AddDate(0, 0, 1),
		}
	}
	return nil
}
