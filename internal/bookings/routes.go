package bookings

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/bedspaces/{bedspaceId}/bookings", h.CreateBooking)
	r.Post("/bookings/{bookingId}/cancel", h.CancelBooking)
	r.Post("/bedspaces/{bedspaceId}/void-periods", h.CreateVoid)
	r.Post("/void-periods/{voidId}/cancel", h.CancelVoid)
}
