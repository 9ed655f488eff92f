package bookings

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/roosthq/roost/internal/platform/httpx"
)

// Handler serves booking and void period endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	bedspaceID, err := uuid.Parse(chi.URLParam(r, "bedspaceId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bedspace id")
		return
	}
	var req CreateBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	booking, err := h.service.CreateBooking(r.Context(), bedspaceID, req)
	if err != nil {
		h.logger.Error("create booking", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, booking)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "bookingId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid booking id")
		return
	}
	if err := h.service.CancelBooking(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateVoid(w http.ResponseWriter, r *http.Request) {
	bedspaceID, err := uuid.Parse(chi.URLParam(r, "bedspaceId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid bedspace id")
		return
	}
	var req CreateVoidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	void, err := h.service.CreateVoid(r.Context(), bedspaceID, req)
	if err != nil {
		h.logger.Error("create void period", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, void)
}

func (h *Handler) CancelVoid(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "voidId"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid void period id")
		return
	}
	if err := h.service.CancelVoid(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
