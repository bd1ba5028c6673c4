package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"urbanlens/internal/middleware"
	"urbanlens/internal/money"
	"urbanlens/internal/services"
	"urbanlens/internal/validator"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Amount    string `json:"amount"`
		ReturnURL string `json:"return_url"`
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
	transaction, err := h.external.CreateDeposit(r.Context(), accountID, amount, h.cfg.Currency, req.ReturnURL, clientIP(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":          transaction.ID,
		"status":      transaction.Status,
		"amount":      formatMoney(transaction.Amount),
		"currency":    transaction.Currency,
		"payment_url": transaction.PaymentURL,
		"expires_at":  transaction.ExpiresAt,
	})
}

// GatewayCallback is the rail's unauthenticated confirmation endpoint; the
// signed query parameters are the authentication.
func (h *Handler) GatewayCallback(w http.ResponseWriter, r *http.Request) {
	transaction, err := h.external.ConfirmPayment(r.Context(), r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":     transaction.ID,
		"status": transaction.Status,
	})
}

func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req struct {
		Amount            string `json:"amount"`
		BankName          string `json:"bank_name"`
		BankAccountNumber string `json:"bank_account_number"`
		BankAccountHolder string `json:"bank_account_holder"`
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
	if err := validator.ValidateBankAccount(req.BankAccountNumber, req.BankAccountHolder); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	transaction, err := h.external.CreateWithdrawal(r.Context(), accountID, amount, h.cfg.Currency, services.BankDetails{
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		BankAccountHolder: req.BankAccountHolder,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":       transaction.ID,
		"status":   transaction.Status,
		"amount":   formatMoney(transaction.Amount),
		"currency": transaction.Currency,
	})
}

func (h *Handler) ListMyExternalTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	wallet, err := h.wallets.GetByOwner(r.Context(), accountID)
	if err != nil {
		respondError(w, http.StatusNotFound, "wallet not found")
		return
	}
	limit, offset := paging(r)
	transactions, err := h.externals.ListByWallet(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(transactions))
	for _, transaction := range transactions {
		normalized = append(normalized, map[string]any{
			"id":         transaction.ID,
			"direction":  transaction.Direction,
			"amount":     formatMoney(transaction.Amount),
			"currency":   transaction.Currency,
			"status":     transaction.Status,
			"created_at": transaction.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) ProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.transitionWithdrawal(w, r, h.external.MarkWithdrawalProcessing)
}

func (h *Handler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.transitionWithdrawal(w, r, h.external.FailWithdrawal)
}

func (h *Handler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.transitionWithdrawal(w, r, h.external.RejectWithdrawal)
}

func (h *Handler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		TransferProofURL string `json:"transfer_proof_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.external.CompleteWithdrawal(r.Context(), id, req.TransferProofURL); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) transitionWithdrawal(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if err := validator.ValidateID(id); err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := transition(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrWalletNotUpdatable):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrAlreadyScheduled):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotEligibleForPayout):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrWalletNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrTicketOrderNotFound),
		errors.Is(err, services.ErrExternalTransactionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
