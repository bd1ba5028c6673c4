package services

import (
	"context"
	"testing"

	"urbanlens/internal/models"
)

func escrowFixture() (*memWalletStore, *EscrowService, *stubHub) {
	wallets := newMemWalletStore(
		activeWallet("wallet-payer", "payer", 50000),
		activeWallet("wallet-host", "host", 0),
		models.Wallet{ID: models.EscrowWalletID, Balance: 0, Currency: "VND", Status: models.WalletStatusActive},
		models.Wallet{ID: models.RevenueWalletID, Balance: 0, Currency: "VND", Status: models.WalletStatusActive},
	)
	hub := &stubHub{}
	ledger := NewLedgerService(fakeTxRunner{}, wallets, &recordingTransactionStore{})
	escrow := NewEscrowService(fakeTxRunner{}, wallets, ledger, hub)
	return wallets, escrow, hub
}

func TestEscrowLifecycle(t *testing.T) {
	wallets, escrow, hub := escrowFixture()
	ctx := context.Background()

	// Commit 500.00 into escrow, then award 20.00 to the platform and
	// 180.00 back to the payer.
	if _, err := escrow.TransferToEscrow(ctx, nil, "payer", 50000, "VND", "booking payment", TransferRef{Category: "BOOKING_PAYMENT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallets.balance("wallet-payer") != 0 || wallets.balance(models.EscrowWalletID) != 50000 {
		t.Fatalf("unexpected balances after escrow-in: payer=%d escrow=%d", wallets.balance("wallet-payer"), wallets.balance(models.EscrowWalletID))
	}

	if _, err := escrow.TransferFromEscrowToSystem(ctx, nil, 2000, "VND", "platform share", TransferRef{Category: "PAYOUT"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := escrow.TransferFromEscrowToAccount(ctx, nil, "payer", 18000, "VND", "refund", TransferRef{Category: "REFUND"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if wallets.balance(models.RevenueWalletID) != 2000 {
		t.Fatalf("expected 2000 in revenue, got %d", wallets.balance(models.RevenueWalletID))
	}
	if wallets.balance("wallet-payer") != 18000 {
		t.Fatalf("expected 18000 back with payer, got %d", wallets.balance("wallet-payer"))
	}
	if wallets.balance(models.EscrowWalletID) != 30000 {
		t.Fatalf("expected 30000 left in escrow, got %d", wallets.balance(models.EscrowWalletID))
	}
	if len(hub.updates) != 2 {
		t.Fatalf("expected 2 balance broadcasts, got %d", len(hub.updates))
	}
}

func TestTransferToEscrowFrozenWallet(t *testing.T) {
	frozen := activeWallet("wallet-payer", "payer", 50000)
	frozen.Status = models.WalletStatusFrozen
	wallets := newMemWalletStore(frozen, models.Wallet{ID: models.EscrowWalletID, Currency: "VND", Status: models.WalletStatusActive})
	ledger := NewLedgerService(fakeTxRunner{}, wallets, &recordingTransactionStore{})
	escrow := NewEscrowService(fakeTxRunner{}, wallets, ledger, &stubHub{})

	_, err := escrow.TransferToEscrow(context.Background(), nil, "payer", 100, "VND", "payment", TransferRef{})
	if err != ErrWalletNotUpdatable {
		t.Fatalf("expected ErrWalletNotUpdatable, got %v", err)
	}
	if wallets.balance("wallet-payer") != 50000 {
		t.Fatalf("frozen wallet balance changed")
	}
}

func TestTransferToEscrowInsufficientFunds(t *testing.T) {
	wallets, escrow, _ := escrowFixture()
	_, err := escrow.TransferToEscrow(context.Background(), nil, "payer", 99999999, "VND", "payment", TransferRef{})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if wallets.balance(models.EscrowWalletID) != 0 {
		t.Fatalf("escrow balance changed on failure")
	}
}

func TestTransferToEscrowUnknownOwner(t *testing.T) {
	_, escrow, _ := escrowFixture()
	_, err := escrow.TransferToEscrow(context.Background(), nil, "nobody", 100, "VND", "payment", TransferRef{})
	if err != ErrWalletNotFound {
		t.Fatalf("expected ErrWalletNotFound, got %v", err)
	}
}
