package handlers

import (
	"encoding/json"
	"net/http"

	"urbanlens/internal/config"
	"urbanlens/internal/money"
	"urbanlens/internal/websocket"
)

type Handler struct {
	cfg       config.Config
	wallets   WalletStore
	ledgerTxs TransactionStore
	externals ExternalStore
	external  ExternalService
	bookings  BookingService
	payouts   PayoutService
	hub       *websocket.Hub
}

func New(cfg config.Config, wallets WalletStore, ledgerTxs TransactionStore, externals ExternalStore, external ExternalService, bookings BookingService, payouts PayoutService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:       cfg,
		wallets:   wallets,
		ledgerTxs: ledgerTxs,
		externals: externals,
		external:  external,
		bookings:  bookings,
		payouts:   payouts,
		hub:       hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func formatMoney(value int64) string {
	return money.FormatMinor(value)
}
