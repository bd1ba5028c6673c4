package store

import (
	"context"
	"time"

	"urbanlens/internal/models"
)

type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Create(ctx context.Context, tx Execer, event models.Event) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (id, organizer_account_id, title, status, ends_at, system_cut_percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.ID, event.OrganizerAccountID, event.Title, event.Status, event.EndsAt, event.SystemCutPercentage)
	return err
}

func (s *EventStore) GetByID(ctx context.Context, eventID string) (models.Event, error) {
	var row models.Event
	err := s.db.GetContext(ctx, &row, eventSelect+` WHERE id = $1`, eventID)
	if err != nil {
		return models.Event{}, mapNoRows(err)
	}
	return row, nil
}

func (s *EventStore) GetForUpdate(ctx context.Context, tx Getter, eventID string) (models.Event, error) {
	var row models.Event
	err := tx.GetContext(ctx, &row, eventSelect+` WHERE id = $1 FOR UPDATE`, eventID)
	if err != nil {
		return models.Event{}, mapNoRows(err)
	}
	return row, nil
}

func (s *EventStore) SetPayoutJob(ctx context.Context, tx Execer, eventID, jobID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events SET payout_job_id = $1, updated_at = NOW() WHERE id = $2
	`, jobID, eventID)
	return err
}

func (s *EventStore) MarkPaidOut(ctx context.Context, tx Execer, eventID string, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE events SET paid_out_at = $1, status = $2, updated_at = NOW() WHERE id = $3
	`, at, models.EventStatusEnded, eventID)
	return err
}

func (s *EventStore) CreateTicketOrder(ctx context.Context, tx Execer, order models.TicketOrder) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ticket_orders (id, event_id, payer_account_id, amount_to_pay, status)
		VALUES ($1, $2, $3, $4, $5)
	`, order.ID, order.EventID, order.PayerAccountID, order.AmountToPay, order.Status)
	return err
}

func (s *EventStore) GetTicketOrderForUpdate(ctx context.Context, tx Getter, orderID string) (models.TicketOrder, error) {
	var row models.TicketOrder
	err := tx.GetContext(ctx, &row, `
		SELECT id, event_id, payer_account_id, amount_to_pay, refunded_amount, status, created_at
		FROM ticket_orders
		WHERE id = $1
		FOR UPDATE
	`, orderID)
	if err != nil {
		return models.TicketOrder{}, mapNoRows(err)
	}
	return row, nil
}

func (s *EventStore) MarkTicketOrderRefunded(ctx context.Context, tx Execer, orderID string, refundedAmount int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE ticket_orders
		SET refunded_amount = $1, status = $2
		WHERE id = $3
	`, refundedAmount, models.TicketOrderStatusRefunded, orderID)
	return err
}

// SumNetTicketRevenue totals paid orders net of refunds for an event payout.
func (s *EventStore) SumNetTicketRevenue(ctx context.Context, q Getter, eventID string) (int64, error) {
	var sum int64
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount_to_pay - refunded_amount), 0)
		FROM ticket_orders
		WHERE event_id = $1 AND status = $2
	`, eventID, models.TicketOrderStatusPaid)
	return sum, err
}

const eventSelect = `
	SELECT id, organizer_account_id, title, status, ends_at, system_cut_percentage,
	       payout_job_id, paid_out_at, created_at
	FROM events
`
