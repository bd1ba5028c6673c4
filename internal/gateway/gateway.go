package gateway

import (
	"context"
	"errors"
	"net/url"
	"time"
)

var (
	ErrInvalidSignature  = errors.New("invalid callback signature")
	ErrMalformedCallback = errors.New("malformed callback parameters")
)

type PaymentURLRequest struct {
	TransactionID string
	AmountMinor   int64
	Currency      string
	ExpiresAt     time.Time
	ReturnURL     string
	IPAddress     string
}

type CallbackResult struct {
	Success               bool
	AmountMinor           int64
	ProviderTransactionID string
	TransactionID         string
}

// PaymentGateway is the port to the external payment rail. The adapter only
// produces a redirect URL and interprets the later confirmation callback;
// real money movement happens entirely outside this process.
type PaymentGateway interface {
	CreatePaymentURL(ctx context.Context, req PaymentURLRequest) (string, error)
	ProcessConfirmationCallback(params url.Values) (CallbackResult, error)
}
