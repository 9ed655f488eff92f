package bookings

import "time"

type CreateBookingRequest struct {
	ArrivalDate           time.Time `json:"arrivalDate" validate:"required"`
	DepartureDate         time.Time `json:"departureDate" validate:"required"`
	TurnaroundWorkingDays int       `json:"turnaroundWorkingDays" validate:"gte=0,lte=14"`
}

type CreateVoidRequest struct {
	StartDate time.Time `json:"startDate" validate:"required"`
	EndDate   time.Time `json:"endDate" validate:"required"`
	Reason    string    `json:"reason" validate:"required,max=255"`
}
