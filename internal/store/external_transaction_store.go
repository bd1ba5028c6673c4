package store

import (
	"context"
	"time"

	"urbanlens/internal/models"
)

type ExternalTransactionStore struct {
	db DB
}

func NewExternalTransactionStore(db DB) *ExternalTransactionStore {
	return &ExternalTransactionStore{db: db}
}

func (s *ExternalTransactionStore) Create(ctx context.Context, tx Execer, input models.WalletExternalTransaction) error {
	query := `
		INSERT INTO wallet_external_transactions
			(id, wallet_id, direction, amount, currency, status, provider, provider_transaction_id,
			 payment_url, expires_at, bank_name, bank_account_number, bank_account_holder)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.WalletID, input.Direction, input.Amount, input.Currency, input.Status,
		input.Provider, input.ProviderTransactionID, input.PaymentURL, input.ExpiresAt,
		input.BankName, input.BankAccountNumber, input.BankAccountHolder,
	)
	return err
}

func (s *ExternalTransactionStore) GetByID(ctx context.Context, id string) (models.WalletExternalTransaction, error) {
	var row models.WalletExternalTransaction
	err := s.db.GetContext(ctx, &row, externalSelect+` WHERE id = $1`, id)
	if err != nil {
		return models.WalletExternalTransaction{}, mapNoRows(err)
	}
	return row, nil
}

func (s *ExternalTransactionStore) GetForUpdate(ctx context.Context, tx Getter, id string) (models.WalletExternalTransaction, error) {
	var row models.WalletExternalTransaction
	err := tx.GetContext(ctx, &row, externalSelect+` WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return models.WalletExternalTransaction{}, mapNoRows(err)
	}
	return row, nil
}

func (s *ExternalTransactionStore) SetPaymentURL(ctx context.Context, tx Execer, id, paymentURL string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_external_transactions
		SET payment_url = $1, updated_at = NOW()
		WHERE id = $2
	`, paymentURL, id)
	return err
}

// TransitionStatus moves a row from one status to another and reports whether
// the guarded transition actually happened. Terminal states never match the
// `from` clause again, which is what makes confirmations idempotent.
func (s *ExternalTransactionStore) TransitionStatus(ctx context.Context, tx Execer, id, from, to string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_external_transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *ExternalTransactionStore) SetProviderRef(ctx context.Context, tx Execer, id, providerTransactionID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_external_transactions
		SET provider_transaction_id = $1, updated_at = NOW()
		WHERE id = $2
	`, providerTransactionID, id)
	return err
}

func (s *ExternalTransactionStore) SetTransferProof(ctx context.Context, tx Execer, id, proofURL string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE wallet_external_transactions
		SET transfer_proof_url = $1, updated_at = NOW()
		WHERE id = $2
	`, proofURL, id)
	return err
}

// ExpireDue flips overdue READY_FOR_PAYMENT deposits to EXPIRED. No wallet
// mutation accompanies this: nothing was debited or credited yet.
func (s *ExternalTransactionStore) ExpireDue(ctx context.Context, tx Execer, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wallet_external_transactions
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND direction = $3 AND expires_at <= $4
	`, models.ExternalStatusExpired, models.ExternalStatusReadyForPayment, models.ExternalDirectionDeposit, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExternalTransactionStore) ListByWallet(ctx context.Context, walletID string, limit, offset int) ([]models.WalletExternalTransaction, error) {
	var rows []models.WalletExternalTransaction
	err := s.db.SelectContext(ctx, &rows, externalSelect+`
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

const externalSelect = `
	SELECT id, wallet_id, direction, amount, currency, status, provider, provider_transaction_id,
	       payment_url, expires_at, bank_name, bank_account_number, bank_account_holder,
	       transfer_proof_url, created_at, updated_at
	FROM wallet_external_transactions
`
