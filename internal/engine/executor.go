package engine

import (
	"context"
	"fmt"
)

// StatusPaused is the campaign status set by the pause action.
const StatusPaused = "PAUSED"

// CampaignAPI is the slice of the ad platform the executor needs: one fetch
// of live campaign state and one mutation per action.
type CampaignAPI interface {
	FetchCampaignFields(ctx context.Context, campaignID string) (CampaignState, error)
	UpdateCampaign(ctx context.Context, campaignID string, patch CampaignPatch) error
}

// Outcome is the result of attempting a rule's action on a campaign.
type Outcome struct {
	Successful bool
	Message    string
}

// executeAction fetches live campaign state, resolves the action and issues
// the mutation. Every error from the remote calls is converted into a failed
// Outcome here; nothing propagates past this boundary.
func (e *Engine) executeAction(ctx context.Context, campaignID string, r Rule) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Outcome{Message: fmt.Sprintf("panic applying rule: %v", rec)}
		}
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	state, err := e.api.FetchCampaignFields(fetchCtx, campaignID)
	cancel()
	if err != nil {
		return Outcome{Message: fmt.Sprintf("fetch campaign state: %v", err)}
	}

	if r.Action == ActionPauseCampaign {
		status := StatusPaused
		if err := e.update(ctx, campaignID, CampaignPatch{Status: &status}); err != nil {
			return Outcome{Message: fmt.Sprintf("pause campaign: %v", err)}
		}
		return Outcome{Successful: true, Message: "campaign paused"}
	}

	if r.Action == ActionCustomMultiplier && r.ActionValue <= 0 {
		return Outcome{Message: "custom multiplier requires a positive action value"}
	}

	change, err := ResolveBudget(state, r.Action, r.ActionValue)
	if err != nil {
		return Outcome{Message: err.Error()}
	}

	patch := CampaignPatch{}
	if change.Field == BudgetDaily {
		patch.DailyBudget = &change.New
	} else {
		patch.LifetimeBudget = &change.New
	}
	if err := e.update(ctx, campaignID, patch); err != nil {
		return Outcome{Message: fmt.Sprintf("update %s: %v", change.Field, err)}
	}
	return Outcome{
		Successful: true,
		Message:    fmt.Sprintf("%s changed from %d to %d", change.Field, change.Old, change.New),
	}
}

func (e *Engine) update(ctx context.Context, campaignID string, patch CampaignPatch) error {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()
	return e.api.UpdateCampaign(ctx, campaignID, patch)
}
