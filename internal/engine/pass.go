package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AdObjectCampaign is the only ad object type the engine acts on today.
const AdObjectCampaign = "campaign"

// Execution is one append-only audit entry: created exactly once per
// (rule, snapshot) pair that matched, whether or not the action succeeded.
type Execution struct {
	ID            string    `json:"id"`
	RuleID        int64     `json:"rule_id"`
	AdObjectID    string    `json:"ad_object_id"`
	AdObjectType  string    `json:"ad_object_type"`
	AdObjectName  string    `json:"ad_object_name"`
	ExecutedAt    time.Time `json:"executed_at"`
	WasSuccessful bool      `json:"was_successful"`
	Message       string    `json:"message"`
}

// Recorder is the audit sink. A failed append is logged, never escalated.
type Recorder interface {
	RecordExecution(ctx context.Context, rec Execution) error
}

// Engine evaluates rules against snapshots and applies matched actions.
// It is read-only on rules and stateless across passes.
type Engine struct {
	api         CampaignAPI
	recorder    Recorder
	callTimeout time.Duration
}

func New(api CampaignAPI, recorder Recorder, callTimeout time.Duration) *Engine {
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	return &Engine{api: api, recorder: recorder, callTimeout: callTimeout}
}

// PassSummary counts what one pass did.
type PassSummary struct {
	Snapshots   int `json:"snapshots"`
	ActiveRules int `json:"active_rules"`
	Evaluated   int `json:"evaluated"`
	Matched     int `json:"matched"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
}

// RunPass evaluates every active rule against every snapshot and applies
// matched actions. A failure on one (snapshot, rule) pair never blocks the
// rest of the pass: every error below the executor boundary becomes a
// recorded failed outcome and the loop continues.
func (e *Engine) RunPass(ctx context.Context, rules []Rule, snaps []Snapshot) PassSummary {
	sum := PassSummary{Snapshots: len(snaps)}
	for _, r := range rules {
		if r.IsActive {
			sum.ActiveRules++
		}
	}
	if sum.ActiveRules == 0 || len(snaps) == 0 {
		log.Info().Int("rules", sum.ActiveRules).Int("snapshots", len(snaps)).
			Msg("nothing to evaluate; pass ends")
		return sum
	}

	for _, snap := range snaps {
		for _, rule := range rules {
			if !rule.IsActive {
				continue
			}
			sum.Evaluated++
			if !Evaluate(rule, snap) {
				continue
			}
			sum.Matched++
			log.Info().Int64("rule_id", rule.ID).Str("rule", rule.Name).
				Str("campaign_id", snap.CampaignID).Str("campaign", snap.CampaignName).
				Str("action", string(rule.Action)).Msg("rule matched")

			out := e.executeAction(ctx, snap.CampaignID, rule)
			if out.Successful {
				sum.Succeeded++
			} else {
				sum.Failed++
				log.Warn().Int64("rule_id", rule.ID).Str("campaign_id", snap.CampaignID).
					Str("message", out.Message).Msg("action failed")
			}

			rec := Execution{
				ID:            uuid.NewString(),
				RuleID:        rule.ID,
				AdObjectID:    snap.CampaignID,
				AdObjectType:  AdObjectCampaign,
				AdObjectName:  snap.CampaignName,
				ExecutedAt:    time.Now().UTC(),
				WasSuccessful: out.Successful,
				Message:       out.Message,
			}
			if err := e.recorder.RecordExecution(ctx, rec); err != nil {
				log.Error().Err(err).Int64("rule_id", rule.ID).
					Str("campaign_id", snap.CampaignID).Msg("record execution")
			}
		}
	}
	log.Info().Int("evaluated", sum.Evaluated).Int("matched", sum.Matched).
		Int("succeeded", sum.Succeeded).Int("failed", sum.Failed).Msg("pass complete")
	return sum
}
