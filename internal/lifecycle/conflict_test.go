package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roosthq/roost/internal/bookings"
)

// fakeSource serves canned bookings and voids regardless of scope.
type fakeSource struct {
	bookings []bookings.Booking
	void     *bookings.VoidPeriod
}

func (f *fakeSource) OverlappingBookings(_ context.Context, _ bookings.Scope, _ time.Time) ([]bookings.Booking, error) {
	return f.bookings, nil
}

func (f *fakeSource) LatestVoid(_ context.Context, _ bookings.Scope, _ time.Time) (*bookings.VoidPeriod, error) {
	return f.void, nil
}

// fakeCalendar skips weekends only.
type fakeCalendar struct{}

func (fakeCalendar) AddWorkingDays(_ context.Context, from time.Time, count int) (time.Time, error) {
	d := from
	for count > 0 {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		count--
	}
	return d, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func booking(departure time.Time, turnaround int) bookings.Booking {
	return bookings.Booking{
		ID:                    uuid.New(),
		BedspaceID:            uuid.New(),
		ArrivalDate:           departure.AddDate(0, 0, -7),
		DepartureDate:         departure,
		TurnaroundWorkingDays: turnaround,
	}
}

func TestDetectorNoOccupancy(t *testing.T) {
	d := NewDetector(&fakeSource{}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(uuid.New()), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestDetectorBookingBlocksOnBoundary(t *testing.T) {
	// Departure exactly on the proposed end date still blocks; the
	// earliest workable date is the day after.
	b := booking(date(2026, 4, 1), 0)
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{b}}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(b.BedspaceID), date(2026, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, b.ID, conflict.EntityID)
	assert.Equal(t, ReasonExistingBookings, conflict.Reason)
	assert.Equal(t, date(2026, 4, 2), conflict.EarliestDate)
}

func TestDetectorBookingClearBeforeProposedDate(t *testing.T) {
	b := booking(date(2026, 3, 31), 0)
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{b}}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(b.BedspaceID), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Nil(t, conflict)
}

func TestDetectorTurnaroundExtendsUnavailability(t *testing.T) {
	// Departure Friday 2026-03-27 plus two working days lands on
	// Tuesday 2026-03-31, skipping the weekend.
	b := booking(date(2026, 3, 27), 2)
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{b}}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(b.BedspaceID), date(2026, 3, 30))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, ReasonExistingTurnaround, conflict.Reason)
	assert.Equal(t, date(2026, 4, 1), conflict.EarliestDate)
}

func TestDetectorReportsLatestBlockingBooking(t *testing.T) {
	early := booking(date(2026, 4, 2), 0)
	late := booking(date(2026, 4, 10), 0)
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{early, late}}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.PremisesScope(uuid.New()), date(2026, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, late.ID, conflict.EntityID)
	assert.Equal(t, date(2026, 4, 11), conflict.EarliestDate)
}

func TestDetectorVoidWinsWhenItEndsLater(t *testing.T) {
	b := booking(date(2026, 4, 5), 0)
	void := &bookings.VoidPeriod{
		ID:         uuid.New(),
		BedspaceID: b.BedspaceID,
		StartDate:  date(2026, 4, 1),
		EndDate:    date(2026, 4, 20),
	}
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{b}, void: void}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(b.BedspaceID), date(2026, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, ReasonExistingVoid, conflict.Reason)
	assert.Equal(t, void.ID, conflict.EntityID)
	assert.Equal(t, date(2026, 4, 21), conflict.EarliestDate)
}

func TestDetectorBookingWinsOverEarlierVoid(t *testing.T) {
	b := booking(date(2026, 4, 25), 0)
	void := &bookings.VoidPeriod{
		ID:         uuid.New(),
		BedspaceID: b.BedspaceID,
		StartDate:  date(2026, 4, 1),
		EndDate:    date(2026, 4, 10),
	}
	d := NewDetector(&fakeSource{bookings: []bookings.Booking{b}, void: void}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(b.BedspaceID), date(2026, 4, 1))
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, ReasonExistingBookings, conflict.Reason)
	assert.Equal(t, b.ID, conflict.EntityID)
}

func TestDetectorIgnoresVoidEndingBeforeProposedDate(t *testing.T) {
	void := &bookings.VoidPeriod{
		ID:        uuid.New(),
		StartDate: date(2026, 3, 1),
		EndDate:   date(2026, 3, 20),
	}
	d := NewDetector(&fakeSource{void: void}, fakeCalendar{})

	conflict, err := d.FindBlockingConflict(context.Background(), bookings.BedspaceScope(uuid.New()), date(2026, 4, 1))
	require.NoError(t, err)
	assert.Nil(t, conflict)
}
