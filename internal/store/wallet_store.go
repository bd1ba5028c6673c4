package store

import (
	"context"

	"urbanlens/internal/models"
)

type WalletStore struct {
	db DB
}

func NewWalletStore(db DB) *WalletStore {
	return &WalletStore{db: db}
}

func (s *WalletStore) Create(ctx context.Context, tx Execer, wallet models.Wallet) error {
	query := `
		INSERT INTO wallets (id, owner_id, balance, locked_balance, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query,
		wallet.ID, wallet.OwnerID, wallet.Balance, wallet.LockedBalance, wallet.Currency, wallet.Status,
	)
	return err
}

// EnsureSystemWallets lazily creates the escrow and revenue wallets under
// their well-known ids. Safe to call on every startup.
func (s *WalletStore) EnsureSystemWallets(ctx context.Context, tx Execer, currency string) error {
	query := `
		INSERT INTO wallets (id, owner_id, balance, locked_balance, currency, status)
		VALUES ($1, NULL, 0, 0, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	for _, id := range []string{models.EscrowWalletID, models.RevenueWalletID} {
		if _, err := tx.ExecContext(ctx, query, id, currency, models.WalletStatusActive); err != nil {
			return err
		}
	}
	return nil
}

func (s *WalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, balance, locked_balance, currency, status, created_at
		FROM wallets
		WHERE id = $1
	`, walletID)
	if err != nil {
		return models.Wallet{}, mapNoRows(err)
	}
	return row, nil
}

func (s *WalletStore) GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error) {
	var row models.Wallet
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, balance, locked_balance, currency, status, created_at
		FROM wallets
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return models.Wallet{}, mapNoRows(err)
	}
	return row, nil
}

// GetForUpdate takes a row-level exclusive lock; every balance decision is
// made against the locked row, never a display read.
func (s *WalletStore) GetForUpdate(ctx context.Context, tx Getter, walletID string) (models.Wallet, error) {
	var row models.Wallet
	err := tx.GetContext(ctx, &row, `
		SELECT id, owner_id, balance, locked_balance, currency, status, created_at
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`, walletID)
	if err != nil {
		return models.Wallet{}, mapNoRows(err)
	}
	return row, nil
}

func (s *WalletStore) UpdateBalance(ctx context.Context, tx Execer, walletID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallets
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, walletID)
	return err
}

// SumBalances totals every wallet in the system; invariant across any
// sequence of internal transfers.
func (s *WalletStore) SumBalances(ctx context.Context) (int64, error) {
	var sum int64
	err := s.db.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(balance), 0)
		FROM wallets
	`)
	return sum, err
}
