package services

import (
	"context"
	"time"

	"urbanlens/internal/models"
	"urbanlens/internal/store"
	"urbanlens/internal/websocket"

	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

func (f fakeTxRunner) WithinTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(tx)
}

// memWalletStore keeps wallets in a map and records lock order, enough to
// assert conservation and deadlock-avoidance without a database.
type memWalletStore struct {
	wallets   map[string]models.Wallet
	byOwner   map[string]string
	lockOrder []string
}

func newMemWalletStore(wallets ...models.Wallet) *memWalletStore {
	s := &memWalletStore{wallets: make(map[string]models.Wallet), byOwner: make(map[string]string)}
	for _, wallet := range wallets {
		s.wallets[wallet.ID] = wallet
		if wallet.OwnerID != nil {
			s.byOwner[*wallet.OwnerID] = wallet.ID
		}
	}
	return s
}

func (s *memWalletStore) GetByID(ctx context.Context, walletID string) (models.Wallet, error) {
	wallet, ok := s.wallets[walletID]
	if !ok {
		return models.Wallet{}, store.ErrNotFound
	}
	return wallet, nil
}

func (s *memWalletStore) GetByOwner(ctx context.Context, ownerID string) (models.Wallet, error) {
	walletID, ok := s.byOwner[ownerID]
	if !ok {
		return models.Wallet{}, store.ErrNotFound
	}
	return s.wallets[walletID], nil
}

func (s *memWalletStore) GetForUpdate(ctx context.Context, tx store.Getter, walletID string) (models.Wallet, error) {
	s.lockOrder = append(s.lockOrder, walletID)
	return s.GetByID(ctx, walletID)
}

func (s *memWalletStore) UpdateBalance(ctx context.Context, tx store.Execer, walletID string, balance int64) error {
	wallet := s.wallets[walletID]
	wallet.Balance = balance
	s.wallets[walletID] = wallet
	return nil
}

func (s *memWalletStore) balance(walletID string) int64 {
	return s.wallets[walletID].Balance
}

type recordingTransactionStore struct {
	records []models.WalletTransaction
}

func (s *recordingTransactionStore) Create(ctx context.Context, tx store.Execer, input models.WalletTransaction) error {
	s.records = append(s.records, input)
	return nil
}

type stubHub struct {
	updates []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.updates = append(s.updates, update)
}

type stubPublisher struct {
	published []string
}

func (s *stubPublisher) Publish(name, entityID string) {
	s.published = append(s.published, name+":"+entityID)
}

type stubJobStore struct {
	createFn        func(ctx context.Context, tx store.Execer, job models.ScheduledJob) error
	getByIDFn       func(ctx context.Context, q store.Getter, jobID string) (models.ScheduledJob, error)
	hasActiveFn     func(ctx context.Context, q store.Getter, jobType, associatedID string) (bool, error)
	cancelFn        func(ctx context.Context, tx store.Execer, jobID string) (int64, error)
	claimDueFn      func(ctx context.Context, tx store.Selecter, now, staleBefore time.Time, limit int) ([]models.ScheduledJob, error)
	markCompletedFn func(ctx context.Context, tx store.Execer, jobID string) (int64, error)
	markFailedFn    func(ctx context.Context, tx store.Execer, jobID, lastError string) (int64, error)
}

func (s stubJobStore) Create(ctx context.Context, tx store.Execer, job models.ScheduledJob) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, job)
}

func (s stubJobStore) GetByID(ctx context.Context, q store.Getter, jobID string) (models.ScheduledJob, error) {
	if s.getByIDFn == nil {
		return models.ScheduledJob{}, store.ErrNotFound
	}
	return s.getByIDFn(ctx, q, jobID)
}

func (s stubJobStore) HasActive(ctx context.Context, q store.Getter, jobType, associatedID string) (bool, error) {
	if s.hasActiveFn == nil {
		return false, nil
	}
	return s.hasActiveFn(ctx, q, jobType, associatedID)
}

func (s stubJobStore) Cancel(ctx context.Context, tx store.Execer, jobID string) (int64, error) {
	if s.cancelFn == nil {
		return 1, nil
	}
	return s.cancelFn(ctx, tx, jobID)
}

func (s stubJobStore) ClaimDue(ctx context.Context, tx store.Selecter, now, staleBefore time.Time, limit int) ([]models.ScheduledJob, error) {
	if s.claimDueFn == nil {
		return nil, nil
	}
	return s.claimDueFn(ctx, tx, now, staleBefore, limit)
}

func (s stubJobStore) MarkCompleted(ctx context.Context, tx store.Execer, jobID string) (int64, error) {
	if s.markCompletedFn == nil {
		return 1, nil
	}
	return s.markCompletedFn(ctx, tx, jobID)
}

func (s stubJobStore) MarkFailed(ctx context.Context, tx store.Execer, jobID, lastError string) (int64, error) {
	if s.markFailedFn == nil {
		return 1, nil
	}
	return s.markFailedFn(ctx, tx, jobID, lastError)
}

func stringPtr(value string) *string {
	return &value
}
