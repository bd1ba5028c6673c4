package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"urbanlens/internal/auth"
	"urbanlens/internal/middleware"
	"urbanlens/internal/websocket"
)

func (h *Handler) GetMyWallet(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       wallet.ID,
		"balance":  formatMoney(wallet.Balance),
		"currency": wallet.Currency,
		"status":   wallet.Status,
	})
}

func (h *Handler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
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
	transactions, err := h.ledgerTxs.ListByWallet(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(transactions))
	for _, transaction := range transactions {
		direction := "in"
		if transaction.SourceWalletID != nil && *transaction.SourceWalletID == wallet.ID {
			direction = "out"
		}
		normalized = append(normalized, map[string]any{
			"id":         transaction.ID,
			"direction":  direction,
			"amount":     formatMoney(transaction.Amount),
			"currency":   transaction.Currency,
			"type":       transaction.Type,
			"category":   transaction.TransactionCategory,
			"note":       transaction.Note,
			"created_at": transaction.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) WSBalances(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.AccountID)
}

func paging(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
