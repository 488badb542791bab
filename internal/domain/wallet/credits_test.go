package wallet_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/livesale/livesale-api/internal/domain/wallet"
)

func mkCredit(remaining int64, issuedAt, expiresAt time.Time) wallet.VirtualCredit {
	return wallet.VirtualCredit{
		ID:              uuid.New(),
		Phone:           "0912345678",
		OriginalAmount:  remaining,
		RemainingAmount: remaining,
		Status:          wallet.CreditStatusActive,
		SourceType:      wallet.SourcePromotion,
		IssuedAt:        issuedAt,
		ExpiresAt:       expiresAt,
	}
}

/* =========================
   FIFO ordering
   ========================= */

func TestSortCreditsSoonestExpiryFirst(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c5d := mkCredit(30000, now, now.AddDate(0, 0, 5))
	c15d := mkCredit(50000, now.Add(-time.Hour), now.AddDate(0, 0, 15))
	c2d := mkCredit(10000, now, now.AddDate(0, 0, 2))

	credits := []wallet.VirtualCredit{c15d, c5d, c2d}
	wallet.SortCredits(credits)

	if credits[0].ID != c2d.ID || credits[1].ID != c5d.ID || credits[2].ID != c15d.ID {
		t.Fatalf("wrong order: %v, %v, %v", credits[0].ExpiresAt, credits[1].ExpiresAt, credits[2].ExpiresAt)
	}
}

func TestSortCreditsTieBreaks(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 0, 7)

	older := mkCredit(1000, now.Add(-2*time.Hour), expires)
	newer := mkCredit(1000, now.Add(-time.Hour), expires)

	credits := []wallet.VirtualCredit{newer, older}
	wallet.SortCredits(credits)
	if credits[0].ID != older.ID {
		t.Fatal("same expiry should order by issued_at ascending")
	}

	// Same expiry and issue time: id decides, so the order is stable
	// across repeated sorts.
	a := mkCredit(1000, now, expires)
	b := mkCredit(1000, now, expires)
	first := []wallet.VirtualCredit{a, b}
	second := []wallet.VirtualCredit{b, a}
	wallet.SortCredits(first)
	wallet.SortCredits(second)
	if first[0].ID != second[0].ID {
		t.Fatal("sort must be deterministic regardless of input order")
	}
}

/* =========================
   Consumption planning
   ========================= */

// Two credits, 30k expiring in 5 days and 50k in 15 days, plus 100k real.
// A 60k withdrawal must exhaust the soonest credit, take 30k from the
// second, and leave the real balance untouched.
func TestPlanConsumptionFIFOAcrossCredits(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c1 := mkCredit(30000, now.Add(-time.Hour), now.AddDate(0, 0, 5))
	c2 := mkCredit(50000, now, now.AddDate(0, 0, 15))

	plan := wallet.PlanConsumption([]wallet.VirtualCredit{c2, c1}, 60000, now)

	if plan.ActiveTotal != 80000 {
		t.Fatalf("expected active total 80000, got %d", plan.ActiveTotal)
	}
	if plan.VirtualUsed != 60000 {
		t.Fatalf("expected virtual used 60000, got %d", plan.VirtualUsed)
	}
	if len(plan.Usages) != 2 {
		t.Fatalf("expected 2 usages, got %d", len(plan.Usages))
	}

	if plan.Usages[0].CreditID != c1.ID || plan.Usages[0].Amount != 30000 ||
		plan.Usages[0].Status != wallet.CreditStatusUsed || plan.Usages[0].RemainingAfter != 0 {
		t.Fatalf("first usage wrong: %+v", plan.Usages[0])
	}
	if plan.Usages[1].CreditID != c2.ID || plan.Usages[1].Amount != 30000 ||
		plan.Usages[1].Status != wallet.CreditStatusActive || plan.Usages[1].RemainingAfter != 20000 {
		t.Fatalf("second usage wrong: %+v", plan.Usages[1])
	}
}

// 100k real + one 30k credit, withdrawing 80k: virtual covers 30k and the
// caller draws the remaining 50k from real.
func TestPlanConsumptionShortfallFallsToReal(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := mkCredit(30000, now, now.AddDate(0, 0, 10))

	plan := wallet.PlanConsumption([]wallet.VirtualCredit{c}, 80000, now)

	if plan.VirtualUsed != 30000 {
		t.Fatalf("expected virtual used 30000, got %d", plan.VirtualUsed)
	}
	realUsed := int64(80000) - plan.VirtualUsed
	if realUsed != 50000 {
		t.Fatalf("expected real used 50000, got %d", realUsed)
	}
	if plan.Usages[0].Status != wallet.CreditStatusUsed {
		t.Fatalf("credit should be fully used, got %s", plan.Usages[0].Status)
	}
}

func TestPlanConsumptionSkipsExpiredAndUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	expired := mkCredit(40000, now.AddDate(0, 0, -20), now.AddDate(0, 0, -1))
	used := mkCredit(25000, now, now.AddDate(0, 0, 10))
	used.Status = wallet.CreditStatusUsed
	used.RemainingAmount = 0
	active := mkCredit(15000, now, now.AddDate(0, 0, 10))

	plan := wallet.PlanConsumption([]wallet.VirtualCredit{expired, used, active}, 20000, now)

	if plan.ActiveTotal != 15000 {
		t.Fatalf("expected active total 15000, got %d", plan.ActiveTotal)
	}
	if plan.VirtualUsed != 15000 {
		t.Fatalf("expected virtual used 15000, got %d", plan.VirtualUsed)
	}
	if len(plan.Usages) != 1 || plan.Usages[0].CreditID != active.ID {
		t.Fatalf("only the active credit should be consumed: %+v", plan.Usages)
	}
}

// A credit expiring at exactly now is no longer consumable.
func TestPlanConsumptionExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	boundary := mkCredit(10000, now.AddDate(0, 0, -5), now)

	plan := wallet.PlanConsumption([]wallet.VirtualCredit{boundary}, 5000, now)
	if plan.VirtualUsed != 0 || plan.ActiveTotal != 0 {
		t.Fatalf("credit at expiry boundary must not be consumable: %+v", plan)
	}
}

func TestActiveTotalIgnoresExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	credits := []wallet.VirtualCredit{
		mkCredit(30000, now, now.AddDate(0, 0, 5)),
		mkCredit(40000, now.AddDate(0, 0, -30), now.AddDate(0, 0, -2)),
	}
	if got := wallet.ActiveTotal(credits, now); got != 30000 {
		t.Fatalf("expected 30000, got %d", got)
	}
}

func TestPlanConsumptionZeroAmount(t *testing.T) {
	now := time.Now()
	c := mkCredit(5000, now, now.AddDate(0, 0, 3))

	plan := wallet.PlanConsumption([]wallet.VirtualCredit{c}, 0, now)
	if plan.VirtualUsed != 0 || len(plan.Usages) != 0 {
		t.Fatalf("zero withdrawal must not touch credits: %+v", plan)
	}
}
