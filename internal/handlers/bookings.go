package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"urbanlens/internal/middleware"
	"urbanlens/internal/money"
	"urbanlens/internal/services"
	"urbanlens/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		LocationID string `json:"location_id"`
		Amount     string `json:"amount"`
		Dates      []struct {
			StartAt time.Time `json:"start_at"`
			EndAt   time.Time `json:"end_at"`
		} `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateID(req.LocationID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid location id")
		return
	}
	amount, err := money.ParseMinor(req.Amount)
	if err != nil || amount < 0 {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	params := services.CreateBookingParams{
		LocationID:     req.LocationID,
		PayerAccountID: accountID,
		AmountMinor:    amount,
		Currency:       h.cfg.Currency,
	}
	for _, date := range req.Dates {
		if !date.EndAt.After(date.StartAt) {
			respondError(w, http.StatusBadRequest, "invalid booking date range")
			return
		}
		params.Dates = append(params.Dates, services.DateRange{StartAt: date.StartAt, EndAt: date.EndAt})
	}
	booking, err := h.bookings.CreateBooking(r.Context(), params)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":       booking.ID,
		"status":   booking.Status,
		"amount":   formatMoney(booking.AmountToPay),
		"currency": booking.Currency,
	})
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.payouts.CancelBooking(r.Context(), id, time.Now().UTC()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.payouts.ApproveBooking(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ForceCancelBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.payouts.ForceCancelBooking(r.Context(), id, time.Now().UTC()); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) FineBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := money.ParseMinor(req.Amount)
	if err != nil || amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	fine, err := h.bookings.AddFine(r.Context(), id, amount, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":     fine.ID,
		"amount": formatMoney(fine.Amount),
		"status": fine.Status,
	})
}

func (h *Handler) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		EventID string `json:"event_id"`
		Amount  string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validator.ValidateID(req.EventID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	amount, err := money.ParseMinor(req.Amount)
	if err != nil || amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return
	}
	order, err := h.bookings.PurchaseTicket(r.Context(), services.PurchaseTicketParams{
		EventID:        req.EventID,
		PayerAccountID: accountID,
		AmountMinor:    amount,
		Currency:       h.cfg.Currency,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":     order.ID,
		"status": order.Status,
		"amount": formatMoney(order.AmountToPay),
	})
}
