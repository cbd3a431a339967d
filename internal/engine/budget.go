package engine

import (
	"errors"
	"fmt"
)

// BudgetField names which campaign budget an action resolved against.
type BudgetField string

const (
	BudgetDaily    BudgetField = "daily_budget"
	BudgetLifetime BudgetField = "lifetime_budget"
)

// CampaignState is the live campaign snapshot fetched at action time. The
// platform populates at most one of the budget fields; values are in the
// smallest currency unit.
type CampaignState struct {
	Name           string
	Status         string
	DailyBudget    *int64
	LifetimeBudget *int64
}

// CampaignPatch is a partial campaign mutation. Nil fields are left untouched.
type CampaignPatch struct {
	Status         *string
	DailyBudget    *int64
	LifetimeBudget *int64
}

// ErrNoBudget is returned when a campaign has neither budget field set.
var ErrNoBudget = errors.New("no budget field available")

// BudgetChange is the resolved result of a budget action.
type BudgetChange struct {
	Field BudgetField
	Old   int64
	New   int64
}

// ResolveBudget computes the new budget for a budget action. Daily budget is
// preferred when both fields are set. Integer arithmetic throughout,
// truncating toward zero on division and on the custom multiplier. No bound
// is enforced on the result; platform-side validation is the only guard.
func ResolveBudget(state CampaignState, action Action, multiplier float64) (BudgetChange, error) {
	var change BudgetChange
	switch {
	case state.DailyBudget != nil:
		change.Field = BudgetDaily
		change.Old = *state.DailyBudget
	case state.LifetimeBudget != nil:
		change.Field = BudgetLifetime
		change.Old = *state.LifetimeBudget
	default:
		return BudgetChange{}, ErrNoBudget
	}

	switch action {
	case ActionDuplicateBudget:
		change.New = change.Old * 2
	case ActionTripleBudget:
		change.New = change.Old * 3
	case ActionHalveBudget:
		change.New = change.Old / 2
	case ActionCustomMultiplier:
		change.New = int64(float64(change.Old) * multiplier)
	default:
		return BudgetChange{}, fmt.Errorf("action %q does not change a budget", action)
	}
	return change, nil
}
