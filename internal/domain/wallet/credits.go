package wallet

import (
	"sort"
	"time"
)

// ConsumptionPlan is the precomputed effect of a withdrawal on a set of
// virtual credits. It is pure data: nothing is written until the caller
// applies it under the wallet lock.
type ConsumptionPlan struct {
	// Usages lists every credit touched, in consumption order.
	Usages []CreditUsage

	// VirtualUsed is the total taken from credits.
	VirtualUsed int64

	// ActiveTotal is the sum of remaining amounts of consumable credits
	// before the plan is applied.
	ActiveTotal int64
}

// SortCredits orders credits deterministically for FIFO consumption:
// soonest expiry first, ties broken by issued_at then id ascending.
func SortCredits(credits []VirtualCredit) {
	sort.SliceStable(credits, func(i, j int) bool {
		if !credits[i].ExpiresAt.Equal(credits[j].ExpiresAt) {
			return credits[i].ExpiresAt.Before(credits[j].ExpiresAt)
		}
		if !credits[i].IssuedAt.Equal(credits[j].IssuedAt) {
			return credits[i].IssuedAt.Before(credits[j].IssuedAt)
		}
		return credits[i].ID.String() < credits[j].ID.String()
	})
}

// ActiveTotal sums the remaining amounts of credits consumable at now.
// Expired credits count as unavailable capacity but are not mutated.
func ActiveTotal(credits []VirtualCredit, now time.Time) int64 {
	var total int64
	for i := range credits {
		if credits[i].Consumable(now) {
			total += credits[i].RemainingAmount
		}
	}
	return total
}

// PlanConsumption walks the credits FIFO and plans how a withdrawal of
// amount is covered from virtual credit. Any shortfall is left to the
// caller to draw from the real balance. The input slice is re-sorted;
// remaining amounts are not modified.
func PlanConsumption(credits []VirtualCredit, amount int64, now time.Time) ConsumptionPlan {
	SortCredits(credits)

	plan := ConsumptionPlan{ActiveTotal: ActiveTotal(credits, now)}

	need := amount
	for i := range credits {
		if need <= 0 {
			break
		}
		c := &credits[i]
		if !c.Consumable(now) {
			continue
		}

		take := c.RemainingAmount
		if take > need {
			take = need
		}

		remainingAfter := c.RemainingAmount - take
		status := CreditStatusActive
		if remainingAfter == 0 {
			status = CreditStatusUsed
		}

		plan.Usages = append(plan.Usages, CreditUsage{
			CreditID:       c.ID,
			Amount:         take,
			Status:         status,
			RemainingAfter: remainingAfter,
		})
		plan.VirtualUsed += take
		need -= take
	}

	return plan
}
