package premises

import (
	"time"

	"github.com/google/uuid"
)

// Status is derived from dates, never stored. A resource is archived
// exactly when its end date is set and has passed; a future end date
// leaves it online but scheduled to archive.
type Status string

const (
	StatusOnline   Status = "online"
	StatusArchived Status = "archived"
)

// Premises is a building containing one or more bedspaces.
type Premises struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Reference    string     `json:"reference" db:"reference"`
	AddressLine1 string     `json:"addressLine1" db:"address_line1"`
	Postcode     string     `json:"postcode" db:"postcode"`
	StartDate    time.Time  `json:"startDate" db:"start_date"`
	EndDate      *time.Time `json:"endDate,omitempty" db:"end_date"`
	CreatedAt    time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" db:"updated_at"`
	Bedspaces    []Bedspace `json:"bedspaces,omitempty" db:"-"`
}

// Bedspace is an individually bookable unit within a premises.
type Bedspace struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	PremisesID uuid.UUID  `json:"premisesId" db:"premises_id"`
	Reference  string     `json:"reference" db:"reference"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	EndDate    *time.Time `json:"endDate,omitempty" db:"end_date"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// StatusAt derives the premises status for the given day.
func (p *Premises) StatusAt(today time.Time) Status {
	return statusAt(p.EndDate, today)
}

// ArchivedAt reports whether the premises is effectively archived.
func (p *Premises) ArchivedAt(today time.Time) bool {
	return archivedAt(p.EndDate, today)
}

// ScheduledToArchiveAt reports a set but not yet effective end date.
func (p *Premises) ScheduledToArchiveAt(today time.Time) bool {
	return p.EndDate != nil && p.EndDate.After(today)
}

// UpcomingAt reports whether the premises has not yet started.
func (p *Premises) UpcomingAt(today time.Time) bool {
	return p.StartDate.After(today)
}

// StatusAt derives the bedspace status for the given day.
func (b *Bedspace) StatusAt(today time.Time) Status {
	return statusAt(b.EndDate, today)
}

// ArchivedAt reports whether the bedspace is effectively archived.
func (b *Bedspace) ArchivedAt(today time.Time) bool {
	return archivedAt(b.EndDate, today)
}

// ScheduledToArchiveAt reports a set but not yet effective end date.
func (b *Bedspace) ScheduledToArchiveAt(today time.Time) bool {
	return b.EndDate != nil && b.EndDate.After(today)
}

// UpcomingAt reports whether the bedspace has not yet started.
func (b *Bedspace) UpcomingAt(today time.Time) bool {
	return b.StartDate.After(today)
}

func archivedAt(end *time.Time, today time.Time) bool {
	return end != nil && !end.After(today)
}

func statusAt(end *time.Time, today time.Time) Status {
	if archivedAt(end, today) {
		return StatusArchived
	}
	return StatusOnline
}
