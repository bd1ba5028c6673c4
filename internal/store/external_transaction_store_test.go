package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"urbanlens/internal/models"
)

func TestExternalTransactionStoreTransitionStatusGuarded(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "AND status = $3") {
				t.Fatalf("expected guarded transition, got: %s", query)
			}
			if args[0] != models.ExternalStatusCompleted || args[2] != models.ExternalStatusReadyForPayment {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewExternalTransactionStore(stubDB{})
	moved, err := store.TransitionStatus(ctx, execer, "ext-1", models.ExternalStatusReadyForPayment, models.ExternalStatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !moved {
		t.Fatalf("expected transition to happen")
	}
}

func TestExternalTransactionStoreTransitionStatusLostRace(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			return stubResult{rows: 0}, nil
		},
	}
	store := NewExternalTransactionStore(stubDB{})
	moved, err := store.TransitionStatus(ctx, execer, "ext-1", models.ExternalStatusPending, models.ExternalStatusProcessing)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved {
		t.Fatalf("expected no transition when status already moved")
	}
}

func TestExternalTransactionStoreExpireDue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "expires_at <= $4") {
				t.Fatalf("unexpected query: %s", query)
			}
			if args[0] != models.ExternalStatusExpired || args[1] != models.ExternalStatusReadyForPayment || args[2] != models.ExternalDirectionDeposit || args[3] != now {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 3}, nil
		},
	}
	store := NewExternalTransactionStore(stubDB{})
	expired, err := store.ExpireDue(ctx, execer, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expired != 3 {
		t.Fatalf("expected 3 expired, got %d", expired)
	}
}
