package handlers

import (
	"context"
	"net/url"
	"time"

	"urbanlens/internal/models"
	"urbanlens/internal/services"
)

type WalletStore interface {
	GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error)
}

type TransactionStore interface {
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error)
}

type ExternalStore interface {
	GetByID(ctx context.Context, id string) (models.WalletExternalTransaction, error)
	ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletExternalTransaction, error)
}

type ExternalService interface {
	CreateDeposit(ctx context.Context, ownerID string, amountMinor int64, currency, returnURL, ipAddress string) (models.WalletExternalTransaction, error)
	ConfirmPayment(ctx context.Context, rawParams url.Values) (models.WalletExternalTransaction, error)
	CreateWithdrawal(ctx context.Context, ownerID string, amountMinor int64, currency string, bank services.BankDetails) (models.WalletExternalTransaction, error)
	MarkWithdrawalProcessing(ctx context.Context, id string) error
	CompleteWithdrawal(ctx context.Context, id, proofURL string) error
	FailWithdrawal(ctx context.Context, id string) error
	RejectWithdrawal(ctx context.Context, id string) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, params services.CreateBookingParams) (models.Booking, error)
	PurchaseTicket(ctx context.Context, params services.PurchaseTicketParams) (models.TicketOrder, error)
	AddFine(ctx context.Context, bookingID string, amountMinor int64, reason string) (models.BookingFine, error)
}

type PayoutService interface {
	ApproveBooking(ctx context.Context, bookingID string) error
	CancelBooking(ctx context.Context, bookingID string, now time.Time) error
	ForceCancelBooking(ctx context.Context, bookingID string, now time.Time) error
	ScheduleEventPayout(ctx context.Context, eventID string) error
	RefundTicketOrder(ctx context.Context, orderID string) error
}
