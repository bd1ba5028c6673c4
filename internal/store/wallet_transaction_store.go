package store

import (
	"context"

	"urbanlens/internal/models"
)

type WalletTransactionStore struct {
	db DB
}

func NewWalletTransactionStore(db DB) *WalletTransactionStore {
	return &WalletTransactionStore{db: db}
}

// Create inserts one immutable transfer record. There is no update path.
func (s *WalletTransactionStore) Create(ctx context.Context, tx Execer, input models.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions
			(id, source_wallet_id, destination_wallet_id, amount, currency, type, status,
			 referenced_init_type, referenced_init_id, transaction_category, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.SourceWalletID, input.DestinationWalletID, input.Amount, input.Currency,
		input.Type, input.Status, input.ReferencedInitType, input.ReferencedInitID,
		input.TransactionCategory, input.Note,
	)
	return err
}

func (s *WalletTransactionStore) GetByID(ctx context.Context, transactionID string) (models.WalletTransaction, error) {
	var row models.WalletTransaction
	err := s.db.GetContext(ctx, &row, `
		SELECT id, source_wallet_id, destination_wallet_id, amount, currency, type, status,
		       referenced_init_type, referenced_init_id, transaction_category, note, created_at
		FROM wallet_transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.WalletTransaction{}, mapNoRows(err)
	}
	return row, nil
}

func (s *WalletTransactionStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletTransaction, error) {
	var rows []models.WalletTransaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, source_wallet_id, destination_wallet_id, amount, currency, type, status,
		       referenced_init_type, referenced_init_id, transaction_category, note, created_at
		FROM wallet_transactions
		WHERE source_wallet_id = $1 OR destination_wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
