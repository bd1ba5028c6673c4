package store

import (
	"context"
	"time"

	"urbanlens/internal/models"
)

type BookingStore struct {
	db DB
}

func NewBookingStore(db DB) *BookingStore {
	return &BookingStore{db: db}
}

func (s *BookingStore) Create(ctx context.Context, tx Execer, booking models.Booking) error {
	query := `
		INSERT INTO bookings (id, location_id, payer_account_id, status, amount_to_pay, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		booking.ID, booking.LocationID, booking.PayerAccountID, booking.Status,
		booking.AmountToPay, booking.Currency,
	)
	return err
}

func (s *BookingStore) CreateDate(ctx context.Context, tx Execer, date models.BookingDate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO booking_dates (id, booking_id, start_at, end_at)
		VALUES ($1, $2, $3, $4)
	`, date.ID, date.BookingID, date.StartAt, date.EndAt)
	return err
}

func (s *BookingStore) GetByID(ctx context.Context, bookingID string) (models.Booking, error) {
	var row models.Booking
	err := s.db.GetContext(ctx, &row, bookingSelect+` WHERE id = $1`, bookingID)
	if err != nil {
		return models.Booking{}, mapNoRows(err)
	}
	return row, nil
}

func (s *BookingStore) GetForUpdate(ctx context.Context, tx Getter, bookingID string) (models.Booking, error) {
	var row models.Booking
	err := tx.GetContext(ctx, &row, bookingSelect+` WHERE id = $1 FOR UPDATE`, bookingID)
	if err != nil {
		return models.Booking{}, mapNoRows(err)
	}
	return row, nil
}

func (s *BookingStore) ListDates(ctx context.Context, q Selecter, bookingID string) ([]models.BookingDate, error) {
	var rows []models.BookingDate
	err := q.SelectContext(ctx, &rows, `
		SELECT id, booking_id, start_at, end_at
		FROM booking_dates
		WHERE booking_id = $1
		ORDER BY end_at
	`, bookingID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *BookingStore) SetApproved(ctx context.Context, tx Execer, bookingID, systemCutPercentage string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = $1, system_cut_percentage = $2, updated_at = NOW()
		WHERE id = $3
	`, models.BookingStatusApproved, systemCutPercentage, bookingID)
	return err
}

func (s *BookingStore) SetStatus(ctx context.Context, tx Execer, bookingID, status string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, bookingID)
	return err
}

func (s *BookingStore) SetPayoutJob(ctx context.Context, tx Execer, bookingID, jobID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings SET scheduled_payout_job_id = $1, updated_at = NOW() WHERE id = $2
	`, jobID, bookingID)
	return err
}

func (s *BookingStore) MarkPaidOut(ctx context.Context, tx Execer, bookingID string, payoutTransactionID *string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET paid_out_at = $1, business_payout_transaction_id = $2, updated_at = NOW()
		WHERE id = $3
	`, at, payoutTransactionID, bookingID)
	return err
}

func (s *BookingStore) MarkRefunded(ctx context.Context, tx Execer, bookingID string, refundedAmount int64, refundTransactionID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET refunded_amount = refunded_amount + $1, refunded_at = $2,
		    refund_transaction_id = $3, updated_at = NOW()
		WHERE id = $4
	`, refundedAmount, at, refundTransactionID, bookingID)
	return err
}

func (s *BookingStore) AddFine(ctx context.Context, tx Execer, fine models.BookingFine) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO booking_fines (id, booking_id, amount, reason, status)
		VALUES ($1, $2, $3, $4, $5)
	`, fine.ID, fine.BookingID, fine.Amount, fine.Reason, fine.Status)
	return err
}

func (s *BookingStore) ListActiveFines(ctx context.Context, q Selecter, bookingID string) ([]models.BookingFine, error) {
	var rows []models.BookingFine
	err := q.SelectContext(ctx, &rows, `
		SELECT id, booking_id, amount, paid_amount, reason, status, created_at
		FROM booking_fines
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at
	`, bookingID, models.FineStatusActive)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *BookingStore) MarkFinePaid(ctx context.Context, tx Execer, fineID string, paidAmount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE booking_fines SET status = $1, paid_amount = $2 WHERE id = $3
	`, models.FineStatusPaid, paidAmount, fineID)
	return err
}

const bookingSelect = `
	SELECT id, location_id, payer_account_id, status, amount_to_pay, currency,
	       refunded_amount, refunded_at, refund_transaction_id,
	       business_payout_transaction_id, scheduled_payout_job_id, paid_out_at,
	       system_cut_percentage, created_at
	FROM bookings
`
