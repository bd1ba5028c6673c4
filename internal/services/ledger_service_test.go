package services

import (
	"context"
	"testing"

	"urbanlens/internal/models"
)

func activeWallet(id, owner string, balance int64) models.Wallet {
	return models.Wallet{ID: id, OwnerID: stringPtr(owner), Balance: balance, Currency: "VND", Status: models.WalletStatusActive}
}

func TestTransferConservesTotal(t *testing.T) {
	wallets := newMemWalletStore(
		activeWallet("wallet-a", "alice", 50000),
		activeWallet("wallet-b", "bob", 0),
	)
	records := &recordingTransactionStore{}
	service := NewLedgerService(fakeTxRunner{}, wallets, records)

	record, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-b",
		AmountMinor:         30000,
		Currency:            "VND",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallets.balance("wallet-a") != 20000 || wallets.balance("wallet-b") != 30000 {
		t.Fatalf("unexpected balances: a=%d b=%d", wallets.balance("wallet-a"), wallets.balance("wallet-b"))
	}
	if wallets.balance("wallet-a")+wallets.balance("wallet-b") != 50000 {
		t.Fatalf("transfer did not conserve total")
	}
	if len(records.records) != 1 {
		t.Fatalf("expected 1 transaction record, got %d", len(records.records))
	}
	if record.Amount != 30000 || *record.SourceWalletID != "wallet-a" || *record.DestinationWalletID != "wallet-b" {
		t.Fatalf("unexpected record: %#v", record)
	}
}

func TestTransferInsufficientFundsLeavesBalances(t *testing.T) {
	wallets := newMemWalletStore(
		activeWallet("wallet-a", "alice", 100),
		activeWallet("wallet-b", "bob", 0),
	)
	records := &recordingTransactionStore{}
	service := NewLedgerService(fakeTxRunner{}, wallets, records)

	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-b",
		AmountMinor:         500,
		Currency:            "VND",
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if wallets.balance("wallet-a") != 100 || wallets.balance("wallet-b") != 0 {
		t.Fatalf("balances changed on failed transfer")
	}
	if len(records.records) != 0 {
		t.Fatalf("expected no records, got %d", len(records.records))
	}
}

func TestTransferCurrencyMismatch(t *testing.T) {
	other := activeWallet("wallet-b", "bob", 0)
	other.Currency = "USD"
	wallets := newMemWalletStore(activeWallet("wallet-a", "alice", 1000), other)
	service := NewLedgerService(fakeTxRunner{}, wallets, &recordingTransactionStore{})

	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-b",
		AmountMinor:         100,
		Currency:            "VND",
	})
	if err != ErrCurrencyMismatch {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestTransferSameWallet(t *testing.T) {
	service := NewLedgerService(fakeTxRunner{}, newMemWalletStore(), &recordingTransactionStore{})
	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-a",
		AmountMinor:         100,
		Currency:            "VND",
	})
	if err != ErrSameWalletTransfer {
		t.Fatalf("expected ErrSameWalletTransfer, got %v", err)
	}
}

func TestTransferInvalidAmount(t *testing.T) {
	service := NewLedgerService(fakeTxRunner{}, newMemWalletStore(), &recordingTransactionStore{})
	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-b",
		AmountMinor:         0,
		Currency:            "VND",
	})
	if err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransferFrozenWalletRejected(t *testing.T) {
	frozen := activeWallet("wallet-b", "bob", 0)
	frozen.Status = models.WalletStatusFrozen
	wallets := newMemWalletStore(activeWallet("wallet-a", "alice", 1000), frozen)
	records := &recordingTransactionStore{}
	service := NewLedgerService(fakeTxRunner{}, wallets, records)

	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-a",
		DestinationWalletID: "wallet-b",
		AmountMinor:         100,
		Currency:            "VND",
	})
	if err != ErrWalletNotUpdatable {
		t.Fatalf("expected ErrWalletNotUpdatable, got %v", err)
	}
	if wallets.balance("wallet-a") != 1000 || wallets.balance("wallet-b") != 0 {
		t.Fatalf("balances changed on frozen-wallet transfer")
	}
	if len(records.records) != 0 {
		t.Fatalf("expected no records, got %d", len(records.records))
	}
}

func TestTransferLocksInAscendingOrder(t *testing.T) {
	wallets := newMemWalletStore(
		activeWallet("wallet-a", "alice", 1000),
		activeWallet("wallet-z", "zoe", 1000),
	)
	service := NewLedgerService(fakeTxRunner{}, wallets, &recordingTransactionStore{})

	// Transfer from the lexically larger id; the lock order must still be
	// ascending.
	_, err := service.Transfer(context.Background(), nil, TransferParams{
		SourceWalletID:      "wallet-z",
		DestinationWalletID: "wallet-a",
		AmountMinor:         100,
		Currency:            "VND",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(wallets.lockOrder) != 2 || wallets.lockOrder[0] != "wallet-a" || wallets.lockOrder[1] != "wallet-z" {
		t.Fatalf("unexpected lock order: %v", wallets.lockOrder)
	}
	if wallets.balance("wallet-z") != 900 || wallets.balance("wallet-a") != 1100 {
		t.Fatalf("unexpected balances after ordered lock transfer")
	}
}

func TestCreditExternalHasNilSource(t *testing.T) {
	wallets := newMemWalletStore(activeWallet("wallet-a", "alice", 0))
	records := &recordingTransactionStore{}
	service := NewLedgerService(fakeTxRunner{}, wallets, records)

	record, err := service.CreditExternal(context.Background(), nil, ExternalLegParams{
		WalletID:    "wallet-a",
		AmountMinor: 5000,
		Currency:    "VND",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallets.balance("wallet-a") != 5000 {
		t.Fatalf("expected credited balance, got %d", wallets.balance("wallet-a"))
	}
	if record.SourceWalletID != nil || record.DestinationWalletID == nil {
		t.Fatalf("expected nil source and set destination: %#v", record)
	}
}

func TestDebitExternalInsufficientFunds(t *testing.T) {
	wallets := newMemWalletStore(activeWallet("wallet-a", "alice", 100))
	service := NewLedgerService(fakeTxRunner{}, wallets, &recordingTransactionStore{})

	_, err := service.DebitExternal(context.Background(), nil, ExternalLegParams{
		WalletID:    "wallet-a",
		AmountMinor: 5000,
		Currency:    "VND",
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if wallets.balance("wallet-a") != 100 {
		t.Fatalf("balance changed on failed debit")
	}
}
