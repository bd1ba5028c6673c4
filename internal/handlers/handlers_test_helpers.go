package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"urbanlens/internal/auth"
	"urbanlens/internal/config"
	"urbanlens/internal/middleware"
	"urbanlens/internal/models"
	"urbanlens/internal/services"
	"urbanlens/internal/websocket"

	"github.com/shopspring/decimal"
)

type stubWalletStore struct {
	getByOwnerFn func(ctx context.Context, ownerID string) (models.Wallet, error)
}

func (s stubWalletStore) GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error) {
	if s.getByOwnerFn == nil {
		return models.Wallet{}, nil
	}
	return s.getByOwnerFn(ctx, ownerID)
}

type stubTransactionStore struct {
	listByWalletFn func(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
}

func (s stubTransactionStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	if s.listByWalletFn == nil {
		return nil, nil
	}
	return s.listByWalletFn(ctx, walletID, limit, offset)
}

type stubExternalStore struct {
	getByIDFn      func(ctx context.Context, id string) (models.WalletExternalTransaction, error)
	listByWalletFn func(ctx context.Context, walletID string, limit, offset int) ([]models.WalletExternalTransaction, error)
}

func (s stubExternalStore) GetByID(ctx context.Context, id string) (models.WalletExternalTransaction, error) {
	if s.getByIDFn == nil {
		return models.WalletExternalTransaction{}, nil
	}
	return s.getByIDFn(ctx, id)
}

func (s stubExternalStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletExternalTransaction, error) {
	if s.listByWalletFn == nil {
		return nil, nil
	}
	return s.listByWalletFn(ctx, walletID, limit, offset)
}

type stubExternalService struct {
	createDepositFn    func(ctx context.Context, ownerID string, amountMinor int64, currency, returnURL, ipAddress string) (models.WalletExternalTransaction, error)
	confirmPaymentFn   func(ctx context.Context, rawParams url.Values) (models.WalletExternalTransaction, error)
	createWithdrawalFn func(ctx context.Context, ownerID string, amountMinor int64, currency string, bank services.BankDetails) (models.WalletExternalTransaction, error)
	transitionFn       func(ctx context.Context, id string) error
	completeFn         func(ctx context.Context, id, proofURL string) error
}

func (s stubExternalService) CreateDeposit(ctx context.Context, ownerID string, amountMinor int64, currency, returnURL, ipAddress string) (models.WalletExternalTransaction, error) {
	if s.createDepositFn == nil {
		return models.WalletExternalTransaction{}, nil
	}
	return s.createDepositFn(ctx, ownerID, amountMinor, currency, returnURL, ipAddress)
}

func (s stubExternalService) ConfirmPayment(ctx context.Context, rawParams url.Values) (models.WalletExternalTransaction, error) {
	if s.confirmPaymentFn == nil {
		return models.WalletExternalTransaction{}, nil
	}
	return s.confirmPaymentFn(ctx, rawParams)
}

func (s stubExternalService) CreateWithdrawal(ctx context.Context, ownerID string, amountMinor int64, currency string, bank services.BankDetails) (models.WalletExternalTransaction, error) {
	if s.createWithdrawalFn == nil {
		return models.WalletExternalTransaction{}, nil
	}
	return s.createWithdrawalFn(ctx, ownerID, amountMinor, currency, bank)
}

func (s stubExternalService) MarkWithdrawalProcessing(ctx context.Context, id string) error {
	if s.transitionFn == nil {
		return nil
	}
	return s.transitionFn(ctx, id)
}

func (s stubExternalService) CompleteWithdrawal(ctx context.Context, id, proofURL string) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, id, proofURL)
}

func (s stubExternalService) FailWithdrawal(ctx context.Context, id string) error {
	if s.transitionFn == nil {
		return nil
	}
	return s.transitionFn(ctx, id)
}

func (s stubExternalService) RejectWithdrawal(ctx context.Context, id string) error {
	if s.transitionFn == nil {
		return nil
	}
	return s.transitionFn(ctx, id)
}

type stubBookingService struct {
	createBookingFn  func(ctx context.Context, params services.CreateBookingParams) (models.Booking, error)
	purchaseTicketFn func(ctx context.Context, params services.PurchaseTicketParams) (models.TicketOrder, error)
	addFineFn        func(ctx context.Context, bookingID string, amountMinor int64, reason string) (models.BookingFine, error)
}

func (s stubBookingService) CreateBooking(ctx context.Context, params services.CreateBookingParams) (models.Booking, error) {
	if s.createBookingFn == nil {
		return models.Booking{}, nil
	}
	return s.createBookingFn(ctx, params)
}

func (s stubBookingService) PurchaseTicket(ctx context.Context, params services.PurchaseTicketParams) (models.TicketOrder, error) {
	if s.purchaseTicketFn == nil {
		return models.TicketOrder{}, nil
	}
	return s.purchaseTicketFn(ctx, params)
}

func (s stubBookingService) AddFine(ctx context.Context, bookingID string, amountMinor int64, reason string) (models.BookingFine, error) {
	if s.addFineFn == nil {
		return models.BookingFine{}, nil
	}
	return s.addFineFn(ctx, bookingID, amountMinor, reason)
}

type stubPayoutService struct {
	approveFn        func(ctx context.Context, bookingID string) error
	cancelFn         func(ctx context.Context, bookingID string, now time.Time) error
	forceCancelFn    func(ctx context.Context, bookingID string, now time.Time) error
	schedulePayoutFn func(ctx context.Context, eventID string) error
	refundTicketFn   func(ctx context.Context, orderID string) error
}

func (s stubPayoutService) ApproveBooking(ctx context.Context, bookingID string) error {
	if s.approveFn == nil {
		return nil
	}
	return s.approveFn(ctx, bookingID)
}

func (s stubPayoutService) CancelBooking(ctx context.Context, bookingID string, now time.Time) error {
	if s.cancelFn == nil {
		return nil
	}
	return s.cancelFn(ctx, bookingID, now)
}

func (s stubPayoutService) ForceCancelBooking(ctx context.Context, bookingID string, now time.Time) error {
	if s.forceCancelFn == nil {
		return nil
	}
	return s.forceCancelFn(ctx, bookingID, now)
}

func (s stubPayoutService) ScheduleEventPayout(ctx context.Context, eventID string) error {
	if s.schedulePayoutFn == nil {
		return nil
	}
	return s.schedulePayoutFn(ctx, eventID)
}

func (s stubPayoutService) RefundTicketOrder(ctx context.Context, orderID string) error {
	if s.refundTicketFn == nil {
		return nil
	}
	return s.refundTicketFn(ctx, orderID)
}

func newTestHandler(wallets WalletStore, ledgerTxs TransactionStore, externals ExternalStore, external ExternalService, bookings BookingService, payouts PayoutService) *Handler {
	cfg := config.Config{
		AppEnv:              "test",
		Port:                "0",
		JWTSecret:           "secret",
		TokenTTL:            time.Minute,
		AllowedOrigins:      "*",
		Currency:            "VND",
		SystemCutPercentage: decimal.RequireFromString("0.1"),
	}
	return New(cfg, wallets, ledgerTxs, externals, external, bookings, payouts, websocket.NewHub())
}

func serveWithAuth(t *testing.T, handler http.Handler, req *http.Request, accountID string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.NewToken("secret", accountID, "", time.Minute)
	if err != nil {
		t.Fatalf("failed to create token: %v", err)
	}
	rr := httptest.NewRecorder()
	req.Header.Set("Authorization", "Bearer "+token)
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}
