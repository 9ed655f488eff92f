package premises

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/premises", h.List)
	r.Post("/premises", h.Create)
	r.Get("/premises/{premisesId}", h.Show)
	r.Post("/premises/{premisesId}/bedspaces", h.CreateBedspace)
	r.Get("/premises/{premisesId}/bedspaces/{bedspaceId}", h.ShowBedspace)
}
