package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Booking occupies a bedspace from arrival to departure, plus an
// optional turnaround buffer of working days after departure during
// which the bedspace stays unavailable.
type Booking struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	BedspaceID            uuid.UUID  `json:"bedspaceId" db:"bedspace_id"`
	ArrivalDate           time.Time  `json:"arrivalDate" db:"arrival_date"`
	DepartureDate         time.Time  `json:"departureDate" db:"departure_date"`
	TurnaroundWorkingDays int        `json:"turnaroundWorkingDays" db:"turnaround_working_days"`
	CancelledAt           *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
}

// Cancelled reports whether the booking has been cancelled.
func (b *Booking) Cancelled() bool { return b.CancelledAt != nil }

// VoidPeriod is planned unavailability unrelated to a booking.
type VoidPeriod struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BedspaceID  uuid.UUID  `json:"bedspaceId" db:"bedspace_id"`
	StartDate   time.Time  `json:"startDate" db:"start_date"`
	EndDate     time.Time  `json:"endDate" db:"end_date"`
	Reason      string     `json:"reason" db:"reason"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty" db:"cancelled_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// Cancelled reports whether the void period has been cancelled.
func (v *VoidPeriod) Cancelled() bool { return v.CancelledAt != nil }

// Scope selects either a single bedspace or every bedspace under a
// premises when querying for conflicting occupancy.
type Scope struct {
	PremisesID uuid.UUID
	BedspaceID uuid.UUID
}

// PremisesScope covers all bedspaces under the premises.
func PremisesScope(premisesID uuid.UUID) Scope {
	return Scope{PremisesID: premisesID}
}

// BedspaceScope covers a single bedspace.
func BedspaceScope(bedspaceID uuid.UUID) Scope {
	return Scope{BedspaceID: bedspaceID}
}
