package handlers

import (
	"net/http"

	"urbanlens/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ScheduleEventPayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.payouts.ScheduleEventPayout(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) RefundTicketOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.payouts.RefundTicketOrder(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
