package services

import (
	"context"
	"errors"
	"net/url"
	"time"

	"urbanlens/internal/db"
	"urbanlens/internal/gateway"
	"urbanlens/internal/metrics"
	"urbanlens/internal/models"
	"urbanlens/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

var (
	ErrExternalTransactionNotFound = errors.New("external transaction not found")
	ErrPaymentNotCompleted         = errors.New("payment was not completed by the rail")
	ErrCallbackAmountMismatch      = errors.New("callback amount does not match transaction")
)

type ExternalTransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input models.WalletExternalTransaction) error
	GetByID(ctx context.Context, id string) (models.WalletExternalTransaction, error)
	GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.WalletExternalTransaction, error)
	TransitionStatus(ctx context.Context, tx store.Execer, id, from, to string) (bool, error)
	SetPaymentURL(ctx context.Context, tx store.Execer, id, paymentURL string) error
	SetProviderRef(ctx context.Context, tx store.Execer, id, providerTransactionID string) error
	SetTransferProof(ctx context.Context, tx store.Execer, id, proofURL string) error
	ExpireDue(ctx context.Context, tx store.Execer, now time.Time) (int64, error)
}

type ExternalLedger interface {
	CreditExternal(ctx context.Context, callerTx *sqlx.Tx, params ExternalLegParams) (models.WalletTransaction, error)
	DebitExternal(ctx context.Context, callerTx *sqlx.Tx, params ExternalLegParams) (models.WalletTransaction, error)
}

// ExternalTransactionService models deposit and withdrawal lifecycles against
// the payment rail. Gateway calls never run inside a database transaction;
// only internal state changes are transactional.
type ExternalTransactionService struct {
	txRunner   db.TxRunner
	externals  ExternalTransactionStore
	wallets    WalletStore
	ledger     ExternalLedger
	gateway    gateway.PaymentGateway
	logger     *logrus.Logger
	depositTTL time.Duration
}

func NewExternalTransactionService(txRunner db.TxRunner, externals ExternalTransactionStore, wallets WalletStore, ledger ExternalLedger, paymentGateway gateway.PaymentGateway, logger *logrus.Logger, depositTTL time.Duration) *ExternalTransactionService {
	return &ExternalTransactionService{
		txRunner:   txRunner,
		externals:  externals,
		wallets:    wallets,
		ledger:     ledger,
		gateway:    paymentGateway,
		logger:     logger,
		depositTTL: depositTTL,
	}
}

// CreateDeposit persists a READY_FOR_PAYMENT transaction with a short expiry
// and asks the rail for a redirect URL. No wallet mutation happens until the
// confirmation callback arrives.
func (s *ExternalTransactionService) CreateDeposit(ctx context.Context, ownerID string, amountMinor int64, currency, returnURL, ipAddress string) (models.WalletExternalTransaction, error) {
	if amountMinor <= 0 {
		return models.WalletExternalTransaction{}, ErrInvalidAmount
	}
	wallet, err := s.ownerWallet(ctx, ownerID)
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	if !wallet.IsUpdatable() {
		return models.WalletExternalTransaction{}, ErrWalletNotUpdatable
	}
	expiresAt := time.Now().UTC().Add(s.depositTTL)
	row := models.WalletExternalTransaction{
		ID:        uuid.NewString(),
		WalletID:  wallet.ID,
		Direction: models.ExternalDirectionDeposit,
		Amount:    amountMinor,
		Currency:  currency,
		Status:    models.ExternalStatusReadyForPayment,
		Provider:  gateway.Provider,
		ExpiresAt: &expiresAt,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.externals.Create(ctx, tx, row)
	})
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}

	paymentURL, err := s.gateway.CreatePaymentURL(ctx, gateway.PaymentURLRequest{
		TransactionID: row.ID,
		AmountMinor:   amountMinor,
		Currency:      currency,
		ExpiresAt:     expiresAt,
		ReturnURL:     returnURL,
		IPAddress:     ipAddress,
	})
	if err != nil {
		// The row stays READY_FOR_PAYMENT and expires on its own.
		s.logger.WithError(err).WithField("external_transaction_id", row.ID).
			Warn("payment url creation failed")
		return models.WalletExternalTransaction{}, err
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.externals.SetPaymentURL(ctx, tx, row.ID, paymentURL)
	})
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	row.PaymentURL = &paymentURL
	return row, nil
}

// ConfirmPayment completes a deposit from the rail's confirmation callback
// and credits the wallet. Re-delivered callbacks are no-ops.
func (s *ExternalTransactionService) ConfirmPayment(ctx context.Context, rawParams url.Values) (models.WalletExternalTransaction, error) {
	result, err := s.gateway.ProcessConfirmationCallback(rawParams)
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	if !result.Success {
		return models.WalletExternalTransaction{}, ErrPaymentNotCompleted
	}
	var confirmed models.WalletExternalTransaction
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.externals.GetForUpdate(ctx, tx, result.TransactionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrExternalTransactionNotFound
			}
			return err
		}
		if row.Direction != models.ExternalDirectionDeposit {
			return ErrInvalidTransition
		}
		if row.Status == models.ExternalStatusCompleted {
			confirmed = row
			return nil
		}
		if row.Status != models.ExternalStatusReadyForPayment {
			return ErrInvalidTransition
		}
		if row.Amount != result.AmountMinor {
			return ErrCallbackAmountMismatch
		}
		initType := models.InitTypeExternal
		if _, err := s.ledger.CreditExternal(ctx, tx, ExternalLegParams{
			WalletID:            row.WalletID,
			AmountMinor:         row.Amount,
			Currency:            row.Currency,
			ReferencedInitType:  &initType,
			ReferencedInitID:    &row.ID,
			TransactionCategory: "DEPOSIT",
			Note:                "deposit via " + row.Provider,
		}); err != nil {
			return err
		}
		moved, err := s.externals.TransitionStatus(ctx, tx, row.ID, models.ExternalStatusReadyForPayment, models.ExternalStatusCompleted)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidTransition
		}
		if result.ProviderTransactionID != "" {
			if err := s.externals.SetProviderRef(ctx, tx, row.ID, result.ProviderTransactionID); err != nil {
				return err
			}
		}
		row.Status = models.ExternalStatusCompleted
		confirmed = row
		return nil
	})
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	metrics.IncTransfer("DEPOSIT")
	return confirmed, nil
}

type BankDetails struct {
	BankName          string
	BankAccountNumber string
	BankAccountHolder string
}

// CreateWithdrawal debits the wallet up front; the money is handed back only
// if the transfer later fails or the request is rejected.
func (s *ExternalTransactionService) CreateWithdrawal(ctx context.Context, ownerID string, amountMinor int64, currency string, bank BankDetails) (models.WalletExternalTransaction, error) {
	if amountMinor <= 0 {
		return models.WalletExternalTransaction{}, ErrInvalidAmount
	}
	wallet, err := s.ownerWallet(ctx, ownerID)
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	if !wallet.IsUpdatable() {
		return models.WalletExternalTransaction{}, ErrWalletNotUpdatable
	}
	row := models.WalletExternalTransaction{
		ID:                uuid.NewString(),
		WalletID:          wallet.ID,
		Direction:         models.ExternalDirectionWithdraw,
		Amount:            amountMinor,
		Currency:          currency,
		Status:            models.ExternalStatusPending,
		Provider:          gateway.Provider,
		BankName:          &bank.BankName,
		BankAccountNumber: &bank.BankAccountNumber,
		BankAccountHolder: &bank.BankAccountHolder,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		initType := models.InitTypeExternal
		if _, err := s.ledger.DebitExternal(ctx, tx, ExternalLegParams{
			WalletID:            wallet.ID,
			AmountMinor:         amountMinor,
			Currency:            currency,
			ReferencedInitType:  &initType,
			ReferencedInitID:    &row.ID,
			TransactionCategory: "WITHDRAWAL",
			Note:                "withdrawal request",
		}); err != nil {
			return err
		}
		return s.externals.Create(ctx, tx, row)
	})
	if err != nil {
		return models.WalletExternalTransaction{}, err
	}
	metrics.IncTransfer("WITHDRAWAL")
	return row, nil
}

func (s *ExternalTransactionService) MarkWithdrawalProcessing(ctx context.Context, id string) error {
	return s.transitionWithdrawal(ctx, id, models.ExternalStatusPending, models.ExternalStatusProcessing, false)
}

func (s *ExternalTransactionService) CompleteWithdrawal(ctx context.Context, id, proofURL string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		moved, err := s.externals.TransitionStatus(ctx, tx, id, models.ExternalStatusProcessing, models.ExternalStatusTransferred)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidTransition
		}
		return s.externals.SetTransferProof(ctx, tx, id, proofURL)
	})
}

// FailWithdrawal credits the debited amount back to the wallet.
func (s *ExternalTransactionService) FailWithdrawal(ctx context.Context, id string) error {
	return s.transitionWithdrawal(ctx, id, models.ExternalStatusProcessing, models.ExternalStatusTransferFailed, true)
}

// RejectWithdrawal refuses a pending request and credits the wallet back.
func (s *ExternalTransactionService) RejectWithdrawal(ctx context.Context, id string) error {
	return s.transitionWithdrawal(ctx, id, models.ExternalStatusPending, models.ExternalStatusRejected, true)
}

func (s *ExternalTransactionService) transitionWithdrawal(ctx context.Context, id, from, to string, creditBack bool) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.externals.GetForUpdate(ctx, tx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrExternalTransactionNotFound
			}
			return err
		}
		if row.Direction != models.ExternalDirectionWithdraw {
			return ErrInvalidTransition
		}
		moved, err := s.externals.TransitionStatus(ctx, tx, id, from, to)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidTransition
		}
		if creditBack {
			initType := models.InitTypeExternal
			if _, err := s.ledger.CreditExternal(ctx, tx, ExternalLegParams{
				WalletID:            row.WalletID,
				AmountMinor:         row.Amount,
				Currency:            row.Currency,
				ReferencedInitType:  &initType,
				ReferencedInitID:    &row.ID,
				TransactionCategory: "WITHDRAWAL_REVERSAL",
				Note:                "withdrawal " + to,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExpireDueDeposits sweeps overdue READY_FOR_PAYMENT deposits. No wallet
// mutation: nothing had been credited yet.
func (s *ExternalTransactionService) ExpireDueDeposits(ctx context.Context, now time.Time) (int64, error) {
	var expired int64
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := s.externals.ExpireDue(ctx, tx, now)
		if err != nil {
			return err
		}
		expired = count
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		metrics.AddExpiredDeposits(expired)
		s.logger.WithField("count", expired).Info("expired overdue deposits")
	}
	return expired, nil
}

func (s *ExternalTransactionService) ownerWallet(ctx context.Context, ownerID string) (models.Wallet, error) {
	wallet, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}
