package lifecycle

import (
	"context"
	"time"

	"github.com/roosthq/roost/internal/bookings"
	"github.com/roosthq/roost/internal/shared"
)

// BookingSource is the occupancy query surface the detector scans.
type BookingSource interface {
	OverlappingBookings(ctx context.Context, scope bookings.Scope, onOrAfter time.Time) ([]bookings.Booking, error)
	LatestVoid(ctx context.Context, scope bookings.Scope, onOrAfter time.Time) (*bookings.VoidPeriod, error)
}

// WorkingDayCalendar resolves turnaround working-day counts to dates.
type WorkingDayCalendar interface {
	AddWorkingDays(ctx context.Context, from time.Time, count int) (time.Time, error)
}

// Detector decides whether a proposed archive end date is blocked by a
// booking, its turnaround, or a void period. It reads, never writes.
type Detector struct {
	bookings BookingSource
	calendar WorkingDayCalendar
}

// NewDetector constructs a Detector.
func NewDetector(source BookingSource, cal WorkingDayCalendar) *Detector {
	return &Detector{bookings: source, calendar: cal}
}

// FindBlockingConflict returns the blocking entity for the proposed end
// date, or nil when the scope is clear. A booking blocks while its
// effective unavailability (departure plus turnaround working days)
// reaches the proposed date; the reported earliest permissible date is
// always the day after the blocking date.
//
// Void periods are reported ahead of bookings whenever they extend
// later: a void has no occupant to wait out, so surfacing it first
// gives the caller the true earliest safe date.
func (d *Detector) FindBlockingConflict(ctx context.Context, scope bookings.Scope, proposedEndDate time.Time) (*shared.ConflictError, error) {
	candidates, err := d.bookings.OverlappingBookings(ctx, scope, proposedEndDate)
	if err != nil {
		return nil, err
	}
	void, err := d.bookings.LatestVoid(ctx, scope, proposedEndDate)
	if err != nil {
		return nil, err
	}

	var blocking *bookings.Booking
	var blockingLast time.Time
	for i := range candidates {
		b := &candidates[i]
		last, err := d.calendar.AddWorkingDays(ctx, b.DepartureDate, b.TurnaroundWorkingDays)
		if err != nil {
			return nil, err
		}
		if last.Before(proposedEndDate) {
			continue
		}
		if blocking == nil || last.After(blockingLast) {
			blocking = b
			blockingLast = last
		}
	}

	if void != nil && void.EndDate.Before(proposedEndDate) {
		void = nil
	}
	if void != nil && (blocking == nil || void.EndDate.After(blockingLast)) {
		return &shared.ConflictError{
			EntityID:     void.ID,
			Reason:       ReasonExistingVoid,
			EarliestDate: void.EndDate.AddDate(0, 0, 1),
		}, nil
	}
	if blocking != nil {
		if blockingLast.Equal(blocking.DepartureDate) {
			return &shared.ConflictError{
				EntityID:     blocking.ID,
				Reason:       ReasonExistingBookings,
				EarliestDate: blocking.DepartureDate.AddDate(0, 0, 1),
			}, nil
		}
		return &shared.ConflictError{
			EntityID:     blocking.ID,
			Reason:       ReasonExistingTurnaround,
			EarliestDate: blockingLast.AddDate(0, 0, 1),
		}, nil
	}
	return nil, nil
}
