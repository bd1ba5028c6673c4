package services

import (
	"context"
	"errors"

	"urbanlens/internal/db"
	"urbanlens/internal/models"
	"urbanlens/internal/money"
	"urbanlens/internal/store"
	"urbanlens/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type LedgerEngine interface {
	Transfer(ctx context.Context, callerTx *sqlx.Tx, params TransferParams) (models.WalletTransaction, error)
}

type BalanceHub interface {
	BroadcastBalance(ownerID string, update websocket.BalanceUpdate)
}

// TransferRef ties a wallet transaction back to the business object that
// caused it (booking, ticket order, external transaction).
type TransferRef struct {
	InitType *string
	InitID   *string
	Category string
}

// EscrowService orchestrates the three escrow-mediated movements. Escrow
// decouples "funds are committed" from "funds are awarded": bookings and
// orders can still be rejected, cancelled or partially refunded while the
// money sits in the escrow wallet. Pure orchestration over the ledger
// engine; balances are never touched here.
type EscrowService struct {
	txRunner db.TxRunner
	wallets  WalletStore
	ledger   LedgerEngine
	hub      BalanceHub
}

func NewEscrowService(txRunner db.TxRunner, wallets WalletStore, ledger LedgerEngine, hub BalanceHub) *EscrowService {
	return &EscrowService{txRunner: txRunner, wallets: wallets, ledger: ledger, hub: hub}
}

// TransferToEscrow commits funds from the payer's wallet into escrow.
func (s *EscrowService) TransferToEscrow(ctx context.Context, callerTx *sqlx.Tx, ownerID string, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error) {
	wallet, err := s.ownerWallet(ctx, ownerID)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	if !wallet.IsUpdatable() {
		return models.WalletTransaction{}, ErrWalletNotUpdatable
	}
	if wallet.Balance < amountMinor {
		return models.WalletTransaction{}, ErrInsufficientFunds
	}
	record, err := s.ledger.Transfer(ctx, callerTx, TransferParams{
		SourceWalletID:      wallet.ID,
		DestinationWalletID: models.EscrowWalletID,
		AmountMinor:         amountMinor,
		Currency:            currency,
		Type:                models.TransactionTypeEscrowIn,
		ReferencedInitType:  ref.InitType,
		ReferencedInitID:    ref.InitID,
		TransactionCategory: ref.Category,
		Note:                note,
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.broadcast(ownerID, wallet.ID, wallet.Balance-amountMinor, currency)
	return record, nil
}

// TransferFromEscrowToSystem releases escrowed funds to the revenue wallet.
func (s *EscrowService) TransferFromEscrowToSystem(ctx context.Context, callerTx *sqlx.Tx, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error) {
	return s.ledger.Transfer(ctx, callerTx, TransferParams{
		SourceWalletID:      models.EscrowWalletID,
		DestinationWalletID: models.RevenueWalletID,
		AmountMinor:         amountMinor,
		Currency:            currency,
		Type:                models.TransactionTypeEscrowOutToSystem,
		ReferencedInitType:  ref.InitType,
		ReferencedInitID:    ref.InitID,
		TransactionCategory: ref.Category,
		Note:                note,
	})
}

// TransferFromEscrowToAccount releases escrowed funds to an owner's wallet.
func (s *EscrowService) TransferFromEscrowToAccount(ctx context.Context, callerTx *sqlx.Tx, ownerID string, amountMinor int64, currency, note string, ref TransferRef) (models.WalletTransaction, error) {
	wallet, err := s.ownerWallet(ctx, ownerID)
	if err != nil {
		return models.WalletTransaction{}, err
	}
	record, err := s.ledger.Transfer(ctx, callerTx, TransferParams{
		SourceWalletID:      models.EscrowWalletID,
		DestinationWalletID: wallet.ID,
		AmountMinor:         amountMinor,
		Currency:            currency,
		Type:                models.TransactionTypeEscrowOutToAccount,
		ReferencedInitType:  ref.InitType,
		ReferencedInitID:    ref.InitID,
		TransactionCategory: ref.Category,
		Note:                note,
	})
	if err != nil {
		return models.WalletTransaction{}, err
	}
	s.broadcast(ownerID, wallet.ID, wallet.Balance+amountMinor, currency)
	return record, nil
}

func (s *EscrowService) ownerWallet(ctx context.Context, ownerID string) (models.Wallet, error) {
	wallet, err := s.wallets.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Wallet{}, ErrWalletNotFound
		}
		return models.Wallet{}, err
	}
	return wallet, nil
}

func (s *EscrowService) broadcast(ownerID, walletID string, balanceMinor int64, currency string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(ownerID, websocket.BalanceUpdate{
		WalletID: walletID,
		Balance:  money.FormatMinor(balanceMinor),
		Currency: currency,
	})
}
