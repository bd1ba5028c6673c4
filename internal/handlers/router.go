package handlers

import (
	"net/http"

	"urbanlens/internal/metrics"
	"urbanlens/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authed := middleware.Auth(h.cfg.JWTSecret)

	router.With(authed).Get("/wallet", h.GetMyWallet)
	router.With(authed).Get("/wallet/transactions", h.ListMyTransactions)
	router.With(authed).Get("/wallet/external-transactions", h.ListMyExternalTransactions)

	router.With(authed).Post("/deposits", h.CreateDeposit)
	router.Get("/deposits/callback", h.GatewayCallback)
	router.With(authed).Post("/withdrawals", h.CreateWithdrawal)

	router.With(authed).Post("/bookings", h.CreateBooking)
	router.With(authed).Post("/bookings/{id}/cancel", h.CancelBooking)
	router.With(authed).Post("/tickets", h.PurchaseTicket)

	router.Route("/ops", func(r chi.Router) {
		r.Use(authed)
		r.Use(middleware.RequireOperator)
		r.Post("/withdrawals/{id}/process", h.ProcessWithdrawal)
		r.Post("/withdrawals/{id}/complete", h.CompleteWithdrawal)
		r.Post("/withdrawals/{id}/fail", h.FailWithdrawal)
		r.Post("/withdrawals/{id}/reject", h.RejectWithdrawal)
		r.Post("/bookings/{id}/approve", h.ApproveBooking)
		r.Post("/bookings/{id}/force-cancel", h.ForceCancelBooking)
		r.Post("/bookings/{id}/fines", h.FineBooking)
		r.Post("/events/{id}/schedule-payout", h.ScheduleEventPayout)
		r.Post("/tickets/{id}/refund", h.RefundTicketOrder)
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return router
}
