package lifecycle

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/platform/httpx"
	"github.com/roosthq/roost/internal/premises"
	"github.com/roosthq/roost/internal/shared"
)

type ArchiveRequest struct {
	EndDate time.Time `json:"endDate" validate:"required"`
}

type UnarchiveRequest struct {
	RestartDate time.Time `json:"restartDate" validate:"required"`
}

// Handler serves the archive/unarchive/cancel operations and the
// read-only probes.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/premises/{premisesId}/archive", h.archivePremises)
	r.Post("/premises/{premisesId}/unarchive", h.unarchivePremises)
	r.Post("/premises/{premisesId}/cancel-archive", h.cancelArchivePremises)
	r.Post("/premises/{premisesId}/cancel-unarchive", h.cancelUnarchivePremises)
	r.Get("/premises/{premisesId}/can-archive", h.canArchivePremises)

	r.Post("/bedspaces/{bedspaceId}/archive", h.archiveBedspace)
	r.Post("/bedspaces/{bedspaceId}/unarchive", h.unarchiveBedspace)
	r.Post("/bedspaces/{bedspaceId}/cancel-archive", h.cancelArchiveBedspace)
	r.Post("/bedspaces/{bedspaceId}/cancel-unarchive", h.cancelUnarchiveBedspace)
	r.Get("/bedspaces/{bedspaceId}/can-archive", h.canArchiveBedspace)
}

func (h *Handler) archivePremises(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "premisesId")
	if !ok {
		return
	}
	var req ArchiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.ArchivePremises(r.Context(), id, req.EndDate)
	h.respondPremises(w, p, err)
}

func (h *Handler) unarchivePremises(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "premisesId")
	if !ok {
		return
	}
	var req UnarchiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.UnarchivePremises(r.Context(), id, req.RestartDate)
	h.respondPremises(w, p, err)
}

func (h *Handler) cancelArchivePremises(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "premisesId")
	if !ok {
		return
	}
	p, err := h.service.CancelScheduledArchivePremises(r.Context(), id)
	h.respondPremises(w, p, err)
}

func (h *Handler) cancelUnarchivePremises(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "premisesId")
	if !ok {
		return
	}
	p, err := h.service.CancelScheduledUnarchivePremises(r.Context(), id)
	h.respondPremises(w, p, err)
}

func (h *Handler) canArchivePremises(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "premisesId")
	if !ok {
		return
	}
	conflict, err := h.service.CanArchivePremises(r.Context(), id)
	h.respondProbe(w, conflict, err)
}

func (h *Handler) archiveBedspace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "bedspaceId")
	if !ok {
		return
	}
	var req ArchiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.ArchiveBedspace(r.Context(), id, req.EndDate)
	h.respondBedspace(w, b, err)
}

func (h *Handler) unarchiveBedspace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "bedspaceId")
	if !ok {
		return
	}
	var req UnarchiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.UnarchiveBedspace(r.Context(), id, req.RestartDate)
	h.respondBedspace(w, b, err)
}

func (h *Handler) cancelArchiveBedspace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "bedspaceId")
	if !ok {
		return
	}
	b, err := h.service.CancelScheduledArchiveBedspace(r.Context(), id)
	h.respondBedspace(w, b, err)
}

func (h *Handler) cancelUnarchiveBedspace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "bedspaceId")
	if !ok {
		return
	}
	b, err := h.service.CancelScheduledUnarchiveBedspace(r.Context(), id)
	h.respondBedspace(w, b, err)
}

func (h *Handler) canArchiveBedspace(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "bedspaceId")
	if !ok {
		return
	}
	conflict, err := h.service.CanArchiveBedspace(r.Context(), id)
	h.respondProbe(w, conflict, err)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondPremises(w http.ResponseWriter, p *premises.Premises, err error) {
	if err != nil {
		h.logger.Warn("premises lifecycle operation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	today := h.now().UTC().Truncate(24 * time.Hour)
	httpx.JSON(w, http.StatusOK, premises.NewPremisesResponse(p, today))
}

func (h *Handler) respondBedspace(w http.ResponseWriter, b *premises.Bedspace, err error) {
	if err != nil {
		h.logger.Warn("bedspace lifecycle operation", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	today := h.now().UTC().Truncate(24 * time.Hour)
	httpx.JSON(w, http.StatusOK, premises.NewBedspaceResponse(b, today))
}

func (h *Handler) respondProbe(w http.ResponseWriter, conflict *shared.ConflictError, err error) {
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if conflict == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"canArchive": true})
		return
	}
	body := map[string]any{
		"canArchive": false,
		"entityId":   conflict.EntityID,
		"reason":     conflict.Reason,
	}
	if !conflict.EarliestDate.IsZero() {
		body["earliestDate"] = conflict.EarliestDate.Format("2006-01-02")
	}
	httpx.JSON(w, http.StatusOK, body)
}
