package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncTransferCounts(t *testing.T) {
	before := testutil.ToFloat64(transfersTotal.WithLabelValues("ESCROW_IN"))
	IncTransfer("ESCROW_IN")
	IncTransfer("ESCROW_IN")
	after := testutil.ToFloat64(transfersTotal.WithLabelValues("ESCROW_IN"))
	if after-before != 2 {
		t.Fatalf("expected counter to grow by 2, got %f", after-before)
	}
}

func TestObserveJobCounts(t *testing.T) {
	before := testutil.ToFloat64(jobsProcessed.WithLabelValues("LOCATION_BOOKING_PAYOUT", "completed"))
	ObserveJob("LOCATION_BOOKING_PAYOUT", "completed", 25*time.Millisecond)
	after := testutil.ToFloat64(jobsProcessed.WithLabelValues("LOCATION_BOOKING_PAYOUT", "completed"))
	if after-before != 1 {
		t.Fatalf("expected counter to grow by 1, got %f", after-before)
	}
}

func TestAddExpiredDeposits(t *testing.T) {
	before := testutil.ToFloat64(depositsExpired)
	AddExpiredDeposits(3)
	after := testutil.ToFloat64(depositsExpired)
	if after-before != 3 {
		t.Fatalf("expected counter to grow by 3, got %f", after-before)
	}
}
