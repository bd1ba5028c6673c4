package services

import (
	"context"
	"errors"

	"urbanlens/internal/db"
	"urbanlens/internal/metrics"
	"urbanlens/internal/models"
	"urbanlens/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrSameWalletTransfer   = errors.New("cannot transfer to same wallet")
	ErrCurrencyMismatch     = errors.New("currency mismatch")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrWalletNotUpdatable   = errors.New("wallet is not updatable")
	ErrAlreadyScheduled     = errors.New("job already scheduled for entity")
	ErrJobNotFound          = errors.New("job not found")
	ErrJobNotCancellable    = errors.New("job is not cancellable")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrTicketOrderNotFound  = errors.New("ticket order not found")
	ErrNotEligibleForPayout = errors.New("entity is not eligible for payout")
	ErrInvalidTransition    = errors.New("invalid state transition")
)

type WalletStore interface {
	GetByID(ctx context.Context, walletID string) (models.Wallet, error)
	GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error)
	GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error)
	UpdateBalance(ctx context.Context, tx store.Execer, walletID string, balance int64) error
}

type WalletTransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input models.WalletTransaction) error
}

// LedgerService is the only code path allowed to mutate wallet balances.
// Every mutation happens inside one unit of work together with its
// wallet_transactions record: all or nothing.
type LedgerService struct {
	txRunner  db.TxRunner
	wallets   WalletStore
	walletTxs WalletTransactionStore
}

func NewLedgerService(txRunner db.TxRunner, wallets WalletStore, walletTxs WalletTransactionStore) *LedgerService {
	return &LedgerService{txRunner: txRunner, wallets: wallets, walletTxs: walletTxs}
}

type TransferParams struct {
	SourceWalletID      string
	DestinationWalletID string
	AmountMinor         int64
	Currency            string
	Type                string
	ReferencedInitType  *string
	ReferencedInitID    *string
	TransactionCategory string
	Note                string
}

// Transfer moves AmountMinor between two wallets. When callerTx is non-nil
// the movement joins the caller's transaction; otherwise a new one is opened.
func (s *LedgerService) Transfer(ctx context.Context, callerTx *sqlx.Tx, params TransferParams) (models.WalletTransaction, error) {
	if params.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	if params.SourceWalletID == params.DestinationWalletID {
		return models.WalletTransaction{}, ErrSameWalletTransfer
	}
	if params.Type == "" {
		params.Type = models.TransactionTypeGeneric
	}
	var record models.WalletTransaction
	err := s.txRunner.WithinTx(ctx, callerTx, func(tx *sqlx.Tx) error {
		source, destination, err := s.lockTwoWallets(ctx, tx, params.SourceWalletID, params.DestinationWalletID)
		if err != nil {
			return err
		}
		// Status is checked on the locked rows; a wallet frozen after an
		// earlier unlocked read must not move money.
		if !source.IsUpdatable() || !destination.IsUpdatable() {
			return ErrWalletNotUpdatable
		}
		if source.Currency != params.Currency || destination.Currency != params.Currency {
			return ErrCurrencyMismatch
		}
		if source.Balance < params.AmountMinor {
			return ErrInsufficientFunds
		}
		if err := s.wallets.UpdateBalance(ctx, tx, source.ID, source.Balance-params.AmountMinor); err != nil {
			return err
		}
		if err := s.wallets.UpdateBalance(ctx, tx, destination.ID, destination.Balance+params.AmountMinor); err != nil {
			return err
		}
		record = models.WalletTransaction{
			ID:                  uuid.NewString(),
			SourceWalletID:      &params.SourceWalletID,
			DestinationWalletID: &params.DestinationWalletID,
			Amount:              params.AmountMinor,
			Currency:            params.Currency,
			Type:                params.Type,
			Status:              models.TransactionStatusCompleted,
			ReferencedInitType:  params.ReferencedInitType,
			ReferencedInitID:    params.ReferencedInitID,
			TransactionCategory: params.TransactionCategory,
			Note:                params.Note,
		}
		return s.walletTxs.Create(ctx, tx, record)
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	metrics.IncTransfer(record.Type)
	return record, nil
}

type ExternalLegParams struct {
	WalletID            string
	AmountMinor         int64
	Currency            string
	ReferencedInitType  *string
	ReferencedInitID    *string
	TransactionCategory string
	Note                string
}

// CreditExternal increases a single wallet after money arrived over the
// payment rail. The rail side of the record stays nil.
func (s *LedgerService) CreditExternal(ctx context.Context, callerTx *sqlx.Tx, params ExternalLegParams) (models.WalletTransaction, error) {
	if params.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	var record models.WalletTransaction
	err := s.txRunner.WithinTx(ctx, callerTx, func(tx *sqlx.Tx) error {
		wallet, err := s.lockWallet(ctx, tx, params.WalletID)
		if err != nil {
			return err
		}
		if !wallet.IsUpdatable() {
			return ErrWalletNotUpdatable
		}
		if wallet.Currency != params.Currency {
			return ErrCurrencyMismatch
		}
		if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance+params.AmountMinor); err != nil {
			return err
		}
		record = externalRecord(params, nil, &params.WalletID)
		return s.walletTxs.Create(ctx, tx, record)
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	return record, nil
}

// DebitExternal decreases a single wallet ahead of money leaving over the
// payment rail, failing with ErrInsufficientFunds under the row lock.
func (s *LedgerService) DebitExternal(ctx context.Context, callerTx *sqlx.Tx, params ExternalLegParams) (models.WalletTransaction, error) {
	if params.AmountMinor <= 0 {
		return models.WalletTransaction{}, ErrInvalidAmount
	}
	var record models.WalletTransaction
	err := s.txRunner.WithinTx(ctx, callerTx, func(tx *sqlx.Tx) error {
		wallet, err := s.lockWallet(ctx, tx, params.WalletID)
		if err != nil {
			return err
		}
		if !wallet.IsUpdatable() {
			return ErrWalletNotUpdatable
		}
		if wallet.Currency != params.Currency {
			return ErrCurrencyMismatch
		}
		if wallet.Balance < params.AmountMinor {
			return ErrInsufficientFunds
		}
		if err := s.wallets.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance-params.AmountMinor); err != nil {
			return err
		}
		record = externalRecord(params, &params.WalletID, nil)
		return s.walletTxs.Create(ctx, tx, record)
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	return record, nil
}

func externalRecord(params ExternalLegParams, sourceID, destinationID *string) models.WalletTransaction {
	return models.WalletTransaction{
		ID:                  uuid.NewString(),
		SourceWalletID:      sourceID,
		DestinationWalletID: destinationID,
		Amount:              params.AmountMinor,
		Currency:            params.Currency,
		Type:                models.TransactionTypeGeneric,
		Status:              models.TransactionStatusCompleted,
		ReferencedInitType:  params.ReferencedInitType,
		ReferencedInitID:    params.ReferencedInitID,
		TransactionCategory: params.TransactionCategory,
		Note:                params.Note,
	}
}

func (s *LedgerService) lockWallet(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	wallet, err := s.wallets.GetForUpdate(ctx, tx, walletID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}

// lockTwoWallets acquires both row locks in ascending id order so two
// transfers touching the same pair in opposite directions cannot deadlock.
func (s *LedgerService) lockTwoWallets(ctx context.Context, tx store.Getter, firstID, secondID string) (models.Wallet, models.Wallet, error) {
	leftID, rightID := orderedIDs(firstID, secondID)
	left, err := s.lockWallet(ctx, tx, leftID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	right, err := s.lockWallet(ctx, tx, rightID)
	if err != nil {
		return models.Wallet{}, models.Wallet{}, err
	}
	if firstID == leftID {
		return left, right, nil
	}
	return right, left, nil
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}
