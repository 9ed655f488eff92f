package premises

import "time"

type CreatePremisesRequest struct {
	Reference    string    `json:"reference" validate:"required,max=64"`
	AddressLine1 string    `json:"addressLine1" validate:"required,max=255"`
	Postcode     string    `json:"postcode" validate:"required,max=16"`
	StartDate    time.Time `json:"startDate" validate:"required"`
}

type CreateBedspaceRequest struct {
	Reference string    `json:"reference" validate:"required,max=64"`
	StartDate time.Time `json:"startDate" validate:"required"`
}

// PremisesResponse carries the aggregate plus its derived status, so
// callers never re-implement the date comparison.
type PremisesResponse struct {
	Premises
	Status             Status             `json:"status"`
	ScheduledToArchive bool               `json:"scheduledToArchive"`
	BedspaceStatuses   []BedspaceResponse `json:"bedspaceStatuses,omitempty"`
}

type BedspaceResponse struct {
	Bedspace
	Status             Status `json:"status"`
	ScheduledToArchive bool   `json:"scheduledToArchive"`
	Upcoming           bool   `json:"upcoming"`
}

// NewPremisesResponse derives statuses as of today.
func NewPremisesResponse(p *Premises, today time.Time) PremisesResponse {
	resp := PremisesResponse{
		Premises:           *p,
		Status:             p.StatusAt(today),
		ScheduledToArchive: p.ScheduledToArchiveAt(today),
	}
	for i := range p.Bedspaces {
		resp.BedspaceStatuses = append(resp.BedspaceStatuses, NewBedspaceResponse(&p.Bedspaces[i], today))
	}
	return resp
}

// NewBedspaceResponse derives statuses as of today.
func NewBedspaceResponse(b *Bedspace, today time.Time) BedspaceResponse {
	return BedspaceResponse{
		Bedspace:           *b,
		Status:             b.StatusAt(today),
		ScheduledToArchive: b.ScheduledToArchiveAt(today),
		Upcoming:           b.UpcomingAt(today),
	}
}
