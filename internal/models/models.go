package models

import "time"

// Well-known system wallet ids. Resolved through the same wallet store path
// as user wallets; the ledger engine does not treat them specially.
const (
	EscrowWalletID  = "00000000-0000-0000-0000-0000000000e1"
	RevenueWalletID = "00000000-0000-0000-0000-0000000000e2"
)

const (
	WalletStatusActive = "ACTIVE"
	WalletStatusFrozen = "FROZEN"
)

type Wallet struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       *string   `db:"owner_id" json:"owner_id,omitempty"`
	Balance       int64     `db:"balance" json:"balance"`
	LockedBalance int64     `db:"locked_balance" json:"locked_balance"`
	Currency      string    `db:"currency" json:"currency"`
	Status        string    `db:"status" json:"status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (w Wallet) IsSystem() bool {
	return w.OwnerID == nil
}

func (w Wallet) IsUpdatable() bool {
	return w.Status == WalletStatusActive
}

const (
	TransactionTypeEscrowIn           = "ESCROW_IN"
	TransactionTypeEscrowOutToSystem  = "ESCROW_OUT_TO_SYSTEM"
	TransactionTypeEscrowOutToAccount = "ESCROW_OUT_TO_ACCOUNT"
	TransactionTypeGeneric            = "GENERIC"
)

const TransactionStatusCompleted = "COMPLETED"

const (
	InitTypeBooking     = "BOOKING"
	InitTypeTicketOrder = "TICKET_ORDER"
	InitTypeEvent       = "EVENT"
	InitTypeExternal    = "EXTERNAL_TRANSACTION"
)

// WalletTransaction is the immutable record of one atomic balance movement.
// A nil source or destination marks the external payment rail side of a
// deposit or withdrawal; internal transfers always carry both.
type WalletTransaction struct {
	ID                  string    `db:"id" json:"id"`
	SourceWalletID      *string   `db:"source_wallet_id" json:"source_wallet_id,omitempty"`
	DestinationWalletID *string   `db:"destination_wallet_id" json:"destination_wallet_id,omitempty"`
	Amount              int64     `db:"amount" json:"amount"`
	Currency            string    `db:"currency" json:"currency"`
	Type                string    `db:"type" json:"type"`
	Status              string    `db:"status" json:"status"`
	ReferencedInitType  *string   `db:"referenced_init_type" json:"referenced_init_type,omitempty"`
	ReferencedInitID    *string   `db:"referenced_init_id" json:"referenced_init_id,omitempty"`
	TransactionCategory string    `db:"transaction_category" json:"transaction_category"`
	Note                string    `db:"note" json:"note"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

const (
	ExternalDirectionDeposit  = "DEPOSIT"
	ExternalDirectionWithdraw = "WITHDRAW"
)

const (
	ExternalStatusReadyForPayment = "READY_FOR_PAYMENT"
	ExternalStatusCompleted       = "COMPLETED"
	ExternalStatusExpired         = "EXPIRED"
	ExternalStatusPending         = "PENDING"
	ExternalStatusProcessing      = "PROCESSING"
	ExternalStatusTransferred     = "TRANSFERRED"
	ExternalStatusTransferFailed  = "TRANSFER_FAILED"
	ExternalStatusRejected        = "REJECTED"
)

type WalletExternalTransaction struct {
	ID                    string     `db:"id" json:"id"`
	WalletID              string     `db:"wallet_id" json:"wallet_id"`
	Direction             string     `db:"direction" json:"direction"`
	Amount                int64      `db:"amount" json:"amount"`
	Currency              string     `db:"currency" json:"currency"`
	Status                string     `db:"status" json:"status"`
	Provider              string     `db:"provider" json:"provider"`
	ProviderTransactionID *string    `db:"provider_transaction_id" json:"provider_transaction_id,omitempty"`
	PaymentURL            *string    `db:"payment_url" json:"payment_url,omitempty"`
	ExpiresAt             *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	BankName              *string    `db:"bank_name" json:"bank_name,omitempty"`
	BankAccountNumber     *string    `db:"bank_account_number" json:"bank_account_number,omitempty"`
	BankAccountHolder     *string    `db:"bank_account_holder" json:"bank_account_holder,omitempty"`
	TransferProofURL      *string    `db:"transfer_proof_url" json:"transfer_proof_url,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	JobTypeEventPayout           = "EVENT_PAYOUT"
	JobTypeLocationBookingPayout = "LOCATION_BOOKING_PAYOUT"
)

const (
	JobStatusPending   = "PENDING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

type ScheduledJob struct {
	ID           string     `db:"id" json:"id"`
	JobType      string     `db:"job_type" json:"job_type"`
	Payload      []byte     `db:"payload" json:"payload"`
	ExecuteAt    time.Time  `db:"execute_at" json:"execute_at"`
	AssociatedID string     `db:"associated_id" json:"associated_id"`
	Status       string     `db:"status" json:"status"`
	ClaimedAt    *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	LastError    *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

const (
	BookingStatusAwaitingProcessing = "AWAITING_PROCESSING"
	BookingStatusApproved           = "APPROVED"
	BookingStatusRejected           = "REJECTED"
	BookingStatusCancelled          = "CANCELLED"
)

type Booking struct {
	ID                          string     `db:"id" json:"id"`
	LocationID                  string     `db:"location_id" json:"location_id"`
	PayerAccountID              string     `db:"payer_account_id" json:"payer_account_id"`
	Status                      string     `db:"status" json:"status"`
	AmountToPay                 int64      `db:"amount_to_pay" json:"amount_to_pay"`
	Currency                    string     `db:"currency" json:"currency"`
	RefundedAmount              int64      `db:"refunded_amount" json:"refunded_amount"`
	RefundedAt                  *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`
	RefundTransactionID         *string    `db:"refund_transaction_id" json:"refund_transaction_id,omitempty"`
	BusinessPayoutTransactionID *string    `db:"business_payout_transaction_id" json:"business_payout_transaction_id,omitempty"`
	ScheduledPayoutJobID        *string    `db:"scheduled_payout_job_id" json:"scheduled_payout_job_id,omitempty"`
	PaidOutAt                   *time.Time `db:"paid_out_at" json:"paid_out_at,omitempty"`
	SystemCutPercentage         *string    `db:"system_cut_percentage" json:"system_cut_percentage,omitempty"`
	CreatedAt                   time.Time  `db:"created_at" json:"created_at"`
}

// CanBePaidOut is the idempotency guard for at-least-once payout dispatch.
func (b Booking) CanBePaidOut() bool {
	return b.Status == BookingStatusApproved && b.PaidOutAt == nil
}

type BookingDate struct {
	ID        string    `db:"id" json:"id"`
	BookingID string    `db:"booking_id" json:"booking_id"`
	StartAt   time.Time `db:"start_at" json:"start_at"`
	EndAt     time.Time `db:"end_at" json:"end_at"`
}

const (
	FineStatusActive = "ACTIVE"
	FineStatusPaid   = "PAID"
	FineStatusWaived = "WAIVED"
)

type BookingFine struct {
	ID         string    `db:"id" json:"id"`
	BookingID  string    `db:"booking_id" json:"booking_id"`
	Amount     int64     `db:"amount" json:"amount"`
	PaidAmount *int64    `db:"paid_amount" json:"paid_amount,omitempty"`
	Reason     string    `db:"reason" json:"reason"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type Location struct {
	ID             string    `db:"id" json:"id"`
	OwnerAccountID *string   `db:"owner_account_id" json:"owner_account_id,omitempty"`
	Name           string    `db:"name" json:"name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	EventStatusPublished = "PUBLISHED"
	EventStatusEnded     = "ENDED"
)

type Event struct {
	ID                  string     `db:"id" json:"id"`
	OrganizerAccountID  *string    `db:"organizer_account_id" json:"organizer_account_id,omitempty"`
	Title               string     `db:"title" json:"title"`
	Status              string     `db:"status" json:"status"`
	EndsAt              time.Time  `db:"ends_at" json:"ends_at"`
	SystemCutPercentage string     `db:"system_cut_percentage" json:"system_cut_percentage"`
	PayoutJobID         *string    `db:"payout_job_id" json:"payout_job_id,omitempty"`
	PaidOutAt           *time.Time `db:"paid_out_at" json:"paid_out_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
}

const (
	TicketOrderStatusPaid     = "PAID"
	TicketOrderStatusRefunded = "REFUNDED"
)

type TicketOrder struct {
	ID             string    `db:"id" json:"id"`
	EventID        string    `db:"event_id" json:"event_id"`
	PayerAccountID string    `db:"payer_account_id" json:"payer_account_id"`
	AmountToPay    int64     `db:"amount_to_pay" json:"amount_to_pay"`
	RefundedAmount int64     `db:"refunded_amount" json:"refunded_amount"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
