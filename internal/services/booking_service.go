package services

import (
	"context"
	"errors"
	"time"

	"urbanlens/internal/db"
	"urbanlens/internal/models"
	"urbanlens/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type BookingWriter interface {
	Create(ctx context.Context, tx store.Execer, booking models.Booking) error
	CreateDate(ctx context.Context, tx store.Execer, date models.BookingDate) error
	GetForUpdate(ctx context.Context, tx store.Getter, bookingID string) (models.Booking, error)
	AddFine(ctx context.Context, tx store.Execer, fine models.BookingFine) error
}

type TicketStore interface {
	GetByID(ctx context.Context, eventID string) (models.Event, error)
	CreateTicketOrder(ctx context.Context, tx store.Execer, order models.TicketOrder) error
}

type EscrowCommitter interface {
	TransferToEscrow(ctx context.Context, callerTx *sqlx.Tx, ownerID string, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error)
}

// BookingService creates the business rows whose money the payout policy
// later releases. The row and its escrow movement commit together: no booking
// without funds, no funds without a booking.
type BookingService struct {
	txRunner db.TxRunner
	bookings BookingWriter
	tickets  TicketStore
	escrow   EscrowCommitter
}

func NewBookingService(txRunner db.TxRunner, bookings BookingWriter, tickets TicketStore, escrow EscrowCommitter) *BookingService {
	return &BookingService{txRunner: txRunner, bookings: bookings, tickets: tickets, escrow: escrow}
}

type DateRange struct {
	StartAt time.Time
	EndAt   time.Time
}

type CreateBookingParams struct {
	LocationID     string
	PayerAccountID string
	AmountMinor    int64
	Currency       string
	Dates          []DateRange
}

func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (models.Booking, error) {
	if params.AmountMinor < 0 {
		return models.Booking{}, ErrInvalidAmount
	}
	if len(params.Dates) == 0 {
		return models.Booking{}, errors.New("booking requires at least one date")
	}
	booking := models.Booking{
		ID:             uuid.NewString(),
		LocationID:     params.LocationID,
		PayerAccountID: params.PayerAccountID,
		Status:         models.BookingStatusAwaitingProcessing,
		AmountToPay:    params.AmountMinor,
		Currency:       params.Currency,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.bookings.Create(ctx, tx, booking); err != nil {
			return err
		}
		for _, date := range params.Dates {
			if err := s.bookings.CreateDate(ctx, tx, models.BookingDate{
				ID:        uuid.NewString(),
				BookingID: booking.ID,
				StartAt:   date.StartAt.UTC(),
				EndAt:     date.EndAt.UTC(),
			}); err != nil {
				return err
			}
		}
		if params.AmountMinor == 0 {
			return nil
		}
		initType := models.InitTypeBooking
		_, err := s.escrow.TransferToEscrow(ctx, tx, params.PayerAccountID, params.AmountMinor, params.Currency, "booking payment",
			TransferRef{InitType: &initType, InitID: &booking.ID, Category: "BOOKING_PAYMENT"})
		return err
	})
	if err != nil {
		return models.Booking{}, err
	}
	return booking, nil
}

type PurchaseTicketParams struct {
	EventID        string
	PayerAccountID string
	AmountMinor    int64
	Currency       string
}

func (s *BookingService) PurchaseTicket(ctx context.Context, params PurchaseTicketParams) (models.TicketOrder, error) {
	if params.AmountMinor <= 0 {
		return models.TicketOrder{}, ErrInvalidAmount
	}
	event, err := s.tickets.GetByID(ctx, params.EventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.TicketOrder{}, ErrEventNotFound
		}
		return models.TicketOrder{}, err
	}
	if event.Status != models.EventStatusPublished {
		return models.TicketOrder{}, ErrInvalidTransition
	}
	order := models.TicketOrder{
		ID:             uuid.NewString(),
		EventID:        event.ID,
		PayerAccountID: params.PayerAccountID,
		AmountToPay:    params.AmountMinor,
		Status:         models.TicketOrderStatusPaid,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.tickets.CreateTicketOrder(ctx, tx, order); err != nil {
			return err
		}
		initType := models.InitTypeTicketOrder
		_, err := s.escrow.TransferToEscrow(ctx, tx, params.PayerAccountID, params.AmountMinor, params.Currency, "ticket purchase",
			TransferRef{InitType: &initType, InitID: &order.ID, Category: "TICKET_PAYMENT"})
		return err
	})
	if err != nil {
		return models.TicketOrder{}, err
	}
	return order, nil
}

// AddFine records an operator-issued fine against a booking that has not been
// settled yet. Fines are collected, capped and prorated at payout time.
func (s *BookingService) AddFine(ctx context.Context, bookingID string, amountMinor int64, reason string) (models.BookingFine, error) {
	if amountMinor <= 0 {
		return models.BookingFine{}, ErrInvalidAmount
	}
	fine := models.BookingFine{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		Amount:    amountMinor,
		Reason:    reason,
		Status:    models.FineStatusActive,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booking, err := s.bookings.GetForUpdate(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.PaidOutAt != nil || booking.Status == models.BookingStatusCancelled {
			return ErrInvalidTransition
		}
		return s.bookings.AddFine(ctx, tx, fine)
	})
	if err != nil {
		return models.BookingFine{}, err
	}
	return fine, nil
}
