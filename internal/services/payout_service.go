package services

import (
	"context"
	"errors"
	"time"

	"urbanlens/internal/db"
	"urbanlens/internal/events"
	"urbanlens/internal/models"
	"urbanlens/internal/money"
	"urbanlens/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type BookingStore interface {
	GetByID(ctx context.Context, bookingID string) (models.Booking, error)
	GetForUpdate(ctx context.Context, tx store.Getter, bookingID string) (models.Booking, error)
	ListDates(ctx context.Context, q store.Selecter, bookingID string) ([]models.BookingDate, error)
	SetApproved(ctx context.Context, tx store.Execer, bookingID, systemCutPercentage string) error
	SetStatus(ctx context.Context, tx store.Execer, bookingID, status string) error
	SetPayoutJob(ctx context.Context, tx store.Execer, bookingID, jobID string) error
	MarkPaidOut(ctx context.Context, tx store.Execer, bookingID string, payoutTransactionID *string, at time.Time) error
	MarkRefunded(ctx context.Context, tx store.Execer, bookingID string, refundedAmount int64, refundTransactionID string, at time.Time) error
	ListActiveFines(ctx context.Context, q store.Selecter, bookingID string) ([]models.BookingFine, error)
	MarkFinePaid(ctx context.Context, tx store.Execer, fineID string, paidAmount int64) error
}

type EventStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, eventID string) (models.Event, error)
	SetPayoutJob(ctx context.Context, tx store.Execer, eventID, jobID string) error
	MarkPaidOut(ctx context.Context, tx store.Execer, eventID string, at time.Time) error
	SumNetTicketRevenue(ctx context.Context, q store.Getter, eventID string) (int64, error)
	GetTicketOrderForUpdate(ctx context.Context, tx store.Getter, orderID string) (models.TicketOrder, error)
	MarkTicketOrderRefunded(ctx context.Context, tx store.Execer, orderID string, refundedAmount int64) error
}

type OwnerResolver interface {
	ResolveOwner(ctx context.Context, entityID string) (*string, error)
}

type EscrowEngine interface {
	TransferFromEscrowToSystem(ctx context.Context, callerTx *sqlx.Tx, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error)
	TransferFromEscrowToAccount(ctx context.Context, callerTx *sqlx.Tx, ownerID string, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error)
}

type JobScheduler interface {
	CreateJob(ctx context.Context, callerTx *sqlx.Tx, jobType, associatedID string, payload []byte, executeAt time.Time) (models.ScheduledJob, error)
	CancelJob(ctx context.Context, callerTx *sqlx.Tx, jobID string) error
}

// RefundTier maps a minimum cancellation notice to the refunded share of the
// booking amount. Tiers must be ordered by descending notice; the first tier
// the notice satisfies wins, so earlier cancellations never refund less.
type RefundTier struct {
	MinNotice  time.Duration
	Percentage decimal.Decimal
}

type PayoutConfig struct {
	// SystemCutPercentage is the platform's share, snapshotted onto the
	// booking at approval time.
	SystemCutPercentage decimal.Decimal
	// ForceCancelFinePercentage of the booking amount moves from the host's
	// wallet to the payer on a force-cancel.
	ForceCancelFinePercentage decimal.Decimal
	// PayoutCooldown is the dispute window between the last booked date (or
	// event end) and the payout job's execution time.
	PayoutCooldown time.Duration
	// Currency is the platform currency, used for event settlements whose
	// orders do not carry one per row.
	Currency string
	// RefundTiers governs post-approval cancellations.
	RefundTiers []RefundTier
}

// PayoutService owns the money policy: when escrowed funds are released, how
// they split between platform, host and fines, and what cancellations refund.
type PayoutService struct {
	txRunner  db.TxRunner
	bookings  BookingStore
	eventsTbl EventStore
	locations OwnerResolver
	escrow    EscrowEngine
	ledger    LedgerEngine
	wallets   WalletStore
	scheduler JobScheduler
	publisher events.Publisher
	logger    *logrus.Logger
	cfg       PayoutConfig
}

func NewPayoutService(
	txRunner db.TxRunner,
	bookings BookingStore,
	eventStore EventStore,
	locations OwnerResolver,
	escrow EscrowEngine,
	ledger LedgerEngine,
	wallets WalletStore,
	scheduler JobScheduler,
	publisher events.Publisher,
	logger *logrus.Logger,
	cfg PayoutConfig,
) *PayoutService {
	return &PayoutService{
		txRunner:  txRunner,
		bookings:  bookings,
		eventsTbl: eventStore,
		locations: locations,
		escrow:    escrow,
		ledger:    ledger,
		wallets:   wallets,
		scheduler: scheduler,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// ApproveBooking moves a booking to APPROVED, snapshots the current system cut
// and schedules the payout job in the same transaction. A zero-amount booking
// is settled on the spot: there is nothing to pay out.
func (s *PayoutService) ApproveBooking(ctx context.Context, bookingID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booking, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingStatusAwaitingProcessing {
			return ErrInvalidTransition
		}
		if err := s.bookings.SetApproved(ctx, tx, bookingID, s.cfg.SystemCutPercentage.String()); err != nil {
			return err
		}
		if booking.AmountToPay == 0 {
			return s.bookings.MarkPaidOut(ctx, tx, bookingID, nil, time.Now().UTC())
		}
		dates, err := s.bookings.ListDates(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		executeAt := latestEnd(dates).Add(s.cfg.PayoutCooldown)
		job, err := s.scheduler.CreateJob(ctx, tx, models.JobTypeLocationBookingPayout, bookingID, nil, executeAt)
		if err != nil {
			return err
		}
		return s.bookings.SetPayoutJob(ctx, tx, bookingID, job.ID)
	})
	if err != nil {
		return err
	}
	s.publish(events.BookingApproved, bookingID)
	return nil
}

// HandleBookingPayout settles an approved booking out of escrow. Registered
// as the LOCATION_BOOKING_PAYOUT job handler; redeliveries are no-ops because
// paid_out_at is checked under the booking row lock.
func (s *PayoutService) HandleBookingPayout(ctx context.Context, job models.ScheduledJob) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booking, err := s.lockBooking(ctx, tx, job.AssociatedID)
		if err != nil {
			return err
		}
		if booking.PaidOutAt != nil {
			return nil
		}
		if booking.Status != models.BookingStatusApproved {
			return ErrNotEligibleForPayout
		}
		return s.settleBooking(ctx, tx, booking)
	})
}

// settleBooking runs the split and release for whatever net revenue remains on
// the booking. Caller holds the booking row lock.
func (s *PayoutService) settleBooking(ctx context.Context, tx *sqlx.Tx, booking models.Booking) error {
	netRevenue := booking.AmountToPay - booking.RefundedAmount
	now := time.Now().UTC()
	if netRevenue <= 0 {
		return s.bookings.MarkPaidOut(ctx, tx, booking.ID, nil, now)
	}
	cut, err := s.snapshotCut(booking)
	if err != nil {
		return err
	}
	systemCut := money.PercentOf(netRevenue, cut)
	availableForFines := netRevenue - systemCut

	fines, err := s.bookings.ListActiveFines(ctx, tx, booking.ID)
	if err != nil {
		return err
	}
	var totalFines int64
	for _, fine := range fines {
		totalFines += fine.Amount
	}
	finesApplied := totalFines
	if finesApplied > availableForFines {
		finesApplied = availableForFines
	}

	initType := models.InitTypeBooking
	ref := TransferRef{InitType: &initType, InitID: &booking.ID, Category: "PAYOUT"}

	payoutToSystem := systemCut + finesApplied
	if payoutToSystem > 0 {
		if _, err := s.escrow.TransferFromEscrowToSystem(ctx, tx, payoutToSystem, booking.Currency, "booking payout: platform share and fines", ref); err != nil {
			return err
		}
	}
	for _, fine := range fines {
		paid := money.Prorate(fine.Amount, finesApplied, totalFines)
		if err := s.bookings.MarkFinePaid(ctx, tx, fine.ID, paid); err != nil {
			return err
		}
	}

	var payoutTxID *string
	payoutToHost := availableForFines - finesApplied
	if payoutToHost > 0 {
		ownerID, err := s.locations.ResolveOwner(ctx, booking.LocationID)
		if err != nil {
			return err
		}
		if ownerID == nil {
			s.logger.WithFields(logrus.Fields{
				"booking_id":  booking.ID,
				"location_id": booking.LocationID,
				"amount":      payoutToHost,
			}).Warn("location owner unresolvable, host payout left in escrow")
		} else {
			record, err := s.escrow.TransferFromEscrowToAccount(ctx, tx, *ownerID, payoutToHost, booking.Currency, "booking payout: host share", ref)
			if err != nil {
				return err
			}
			payoutTxID = &record.ID
		}
	}
	return s.bookings.MarkPaidOut(ctx, tx, booking.ID, payoutTxID, now)
}

// CancelBooking refunds the payer and, once approved, settles the non-refunded
// remainder immediately so escrow holds nothing for a dead booking.
func (s *PayoutService) CancelBooking(ctx context.Context, bookingID string, now time.Time) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booking, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingStatusCancelled || booking.PaidOutAt != nil {
			return ErrInvalidTransition
		}
		switch booking.Status {
		case models.BookingStatusAwaitingProcessing:
			if err := s.refundPayer(ctx, tx, &booking, booking.AmountToPay, "booking cancelled before approval", now); err != nil {
				return err
			}
		case models.BookingStatusApproved:
			dates, err := s.bookings.ListDates(ctx, tx, bookingID)
			if err != nil {
				return err
			}
			pct := s.refundPercentage(earliestStart(dates).Sub(now))
			refund := money.PercentOf(booking.AmountToPay, pct)
			if err := s.refundPayer(ctx, tx, &booking, refund, "booking cancelled", now); err != nil {
				return err
			}
			if err := s.settleBooking(ctx, tx, booking); err != nil {
				return err
			}
			if err := s.dropPayoutJob(ctx, tx, booking); err != nil {
				return err
			}
		default:
			return ErrInvalidTransition
		}
		return s.bookings.SetStatus(ctx, tx, bookingID, models.BookingStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.publish(events.BookingCancelled, bookingID)
	return nil
}

// ForceCancelBooking is the operator hammer: full refund of what the payer
// still has in escrow, plus a fine from the host's own wallet. Insufficient
// host funds surface to the operator rather than being absorbed.
func (s *PayoutService) ForceCancelBooking(ctx context.Context, bookingID string, now time.Time) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		booking, err := s.lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status == models.BookingStatusCancelled || booking.PaidOutAt != nil {
			return ErrInvalidTransition
		}
		remaining := booking.AmountToPay - booking.RefundedAmount
		if err := s.refundPayer(ctx, tx, &booking, remaining, "booking force-cancelled", now); err != nil {
			return err
		}
		fine := money.PercentOf(booking.AmountToPay, s.cfg.ForceCancelFinePercentage)
		if fine > 0 {
			if err := s.fineHost(ctx, tx, booking, fine); err != nil {
				return err
			}
		}
		if err := s.dropPayoutJob(ctx, tx, booking); err != nil {
			return err
		}
		return s.bookings.SetStatus(ctx, tx, bookingID, models.BookingStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.publish(events.BookingForceCancelled, bookingID)
	return nil
}

// ScheduleEventPayout queues the payout job for when the event's dispute
// window closes.
func (s *PayoutService) ScheduleEventPayout(ctx context.Context, eventID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		event, err := s.lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if event.PaidOutAt != nil {
			return ErrNotEligibleForPayout
		}
		job, err := s.scheduler.CreateJob(ctx, tx, models.JobTypeEventPayout, eventID, nil, event.EndsAt.Add(s.cfg.PayoutCooldown))
		if err != nil {
			return err
		}
		return s.eventsTbl.SetPayoutJob(ctx, tx, eventID, job.ID)
	})
}

// RefundTicketOrder returns a paid order's remaining escrowed amount to the
// payer. Once the event has settled the funds left escrow, so refunds close.
func (s *PayoutService) RefundTicketOrder(ctx context.Context, orderID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.eventsTbl.GetTicketOrderForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTicketOrderNotFound
			}
			return err
		}
		if order.Status != models.TicketOrderStatusPaid {
			return ErrInvalidTransition
		}
		event, err := s.lockEvent(ctx, tx, order.EventID)
		if err != nil {
			return err
		}
		if event.PaidOutAt != nil {
			return ErrNotEligibleForPayout
		}
		remaining := order.AmountToPay - order.RefundedAmount
		if remaining > 0 {
			initType := models.InitTypeTicketOrder
			if _, err := s.escrow.TransferFromEscrowToAccount(ctx, tx, order.PayerAccountID, remaining, s.cfg.Currency, "ticket order refunded",
				TransferRef{InitType: &initType, InitID: &order.ID, Category: "REFUND"}); err != nil {
				return err
			}
		}
		return s.eventsTbl.MarkTicketOrderRefunded(ctx, tx, orderID, order.AmountToPay)
	})
}

// HandleEventPayout settles an ended event's net ticket revenue. Registered as
// the EVENT_PAYOUT job handler.
func (s *PayoutService) HandleEventPayout(ctx context.Context, job models.ScheduledJob) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		event, err := s.lockEvent(ctx, tx, job.AssociatedID)
		if err != nil {
			return err
		}
		if event.PaidOutAt != nil {
			return nil
		}
		now := time.Now().UTC()
		netRevenue, err := s.eventsTbl.SumNetTicketRevenue(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if netRevenue <= 0 {
			return s.eventsTbl.MarkPaidOut(ctx, tx, event.ID, now)
		}
		cut, err := money.ParsePercentage(event.SystemCutPercentage)
		if err != nil {
			return err
		}
		initType := models.InitTypeEvent
		ref := TransferRef{InitType: &initType, InitID: &event.ID, Category: "PAYOUT"}
		systemCut := money.PercentOf(netRevenue, cut)
		if systemCut > 0 {
			if _, err := s.escrow.TransferFromEscrowToSystem(ctx, tx, systemCut, s.cfg.Currency, "event payout: platform share", ref); err != nil {
				return err
			}
		}
		remainder := netRevenue - systemCut
		if remainder > 0 {
			if event.OrganizerAccountID == nil {
				s.logger.WithFields(logrus.Fields{
					"event_id": event.ID,
					"amount":   remainder,
				}).Warn("event organizer unresolvable, payout left in escrow")
			} else if _, err := s.escrow.TransferFromEscrowToAccount(ctx, tx, *event.OrganizerAccountID, remainder, s.cfg.Currency, "event payout: organizer share", ref); err != nil {
				return err
			}
		}
		return s.eventsTbl.MarkPaidOut(ctx, tx, event.ID, now)
	})
	if err != nil {
		return err
	}
	s.publish(events.EventPayoutCompleted, job.AssociatedID)
	return nil
}

// refundPayer moves escrowed funds back to the payer's wallet and records it
// on the booking, updating the in-memory copy so later math in the same
// transaction sees the refund.
func (s *PayoutService) refundPayer(ctx context.Context, tx *sqlx.Tx, booking *models.Booking, amountMinor int64, note string, now time.Time) error {
	if amountMinor <= 0 {
		return nil
	}
	initType := models.InitTypeBooking
	record, err := s.escrow.TransferFromEscrowToAccount(ctx, tx, booking.PayerAccountID, amountMinor, booking.Currency, note,
		TransferRef{InitType: &initType, InitID: &booking.ID, Category: "REFUND"})
	if err != nil {
		return err
	}
	if err := s.bookings.MarkRefunded(ctx, tx, booking.ID, amountMinor, record.ID, now); err != nil {
		return err
	}
	booking.RefundedAmount += amountMinor
	return nil
}

// fineHost moves the force-cancel fine from the host's wallet to the payer.
func (s *PayoutService) fineHost(ctx context.Context, tx *sqlx.Tx, booking models.Booking, fineMinor int64) error {
	ownerID, err := s.locations.ResolveOwner(ctx, booking.LocationID)
	if err != nil {
		return err
	}
	if ownerID == nil {
		s.logger.WithField("booking_id", booking.ID).
			Warn("location owner unresolvable, force-cancel fine skipped")
		return nil
	}
	hostWallet, err := s.wallets.GetByOwner(ctx, *ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWalletNotFound
		}
		return err
	}
	payerWallet, err := s.wallets.GetByOwner(ctx, booking.PayerAccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrWalletNotFound
		}
		return err
	}
	initType := models.InitTypeBooking
	_, err = s.ledger.Transfer(ctx, tx, TransferParams{
		SourceWalletID:      hostWallet.ID,
		DestinationWalletID: payerWallet.ID,
		AmountMinor:         fineMinor,
		Currency:            booking.Currency,
		Type:                models.TransactionTypeGeneric,
		ReferencedInitType:  &initType,
		ReferencedInitID:    &booking.ID,
		TransactionCategory: "FORCE_CANCEL_FINE",
		Note:                "force-cancel compensation",
	})
	return err
}

func (s *PayoutService) dropPayoutJob(ctx context.Context, tx *sqlx.Tx, booking models.Booking) error {
	if booking.ScheduledPayoutJobID == nil {
		return nil
	}
	err := s.scheduler.CancelJob(ctx, tx, *booking.ScheduledPayoutJobID)
	if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotCancellable) {
		return nil
	}
	return err
}

// refundPercentage picks the refunded share for the given cancellation notice.
func (s *PayoutService) refundPercentage(notice time.Duration) decimal.Decimal {
	for _, tier := range s.cfg.RefundTiers {
		if notice >= tier.MinNotice {
			return tier.Percentage
		}
	}
	return decimal.Zero
}

func (s *PayoutService) snapshotCut(booking models.Booking) (decimal.Decimal, error) {
	if booking.SystemCutPercentage == nil {
		return s.cfg.SystemCutPercentage, nil
	}
	return money.ParsePercentage(*booking.SystemCutPercentage)
}

func (s *PayoutService) lockBooking(ctx context.Context, tx *sqlx.Tx, bookingID string) (models.Booking, error) {
	booking, err := s.bookings.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Booking{}, ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return booking, nil
}

func (s *PayoutService) lockEvent(ctx context.Context, tx *sqlx.Tx, eventID string) (models.Event, error) {
	event, err := s.eventsTbl.GetForUpdate(ctx, tx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Event{}, ErrEventNotFound
		}
		return models.Event{}, err
	}
	return event, nil
}

func (s *PayoutService) publish(name, entityID string) {
	if s.publisher != nil {
		s.publisher.Publish(name, entityID)
	}
}

func latestEnd(dates []models.BookingDate) time.Time {
	var latest time.Time
	for _, date := range dates {
		if date.EndAt.After(latest) {
			latest = date.EndAt
		}
	}
	return latest
}

func earliestStart(dates []models.BookingDate) time.Time {
	var earliest time.Time
	for i, date := range dates {
		if i == 0 || date.StartAt.Before(earliest) {
			earliest = date.StartAt
		}
	}
	return earliest
}
