package engine

import "time"

// Metric identifies which snapshot value a condition reads.
type Metric string

const (
	MetricCPA       Metric = "cpa"
	MetricPurchases Metric = "purchases"
)

// Operator compares a metric value against a rule threshold.
type Operator string

const (
	OpLT Operator = "<"
	OpLE Operator = "<="
	OpGT Operator = ">"
	OpGE Operator = ">="
	OpEQ Operator = "=="
)

// Join combines the two conditions of a composite rule.
type Join string

const (
	JoinAND Join = "AND"
	JoinOR  Join = "OR"
)

// Action is what a matched rule does to a campaign.
type Action string

const (
	ActionDuplicateBudget  Action = "duplicate_budget"
	ActionTripleBudget     Action = "triple_budget"
	ActionHalveBudget      Action = "halve_budget"
	ActionPauseCampaign    Action = "pause_campaign"
	ActionCustomMultiplier Action = "custom_budget_multiplier"
)

// Valid reports whether the metric is one the evaluator understands.
func (m Metric) Valid() bool {
	return m == MetricCPA || m == MetricPurchases
}

func (o Operator) Valid() bool {
	switch o {
	case OpLT, OpLE, OpGT, OpGE, OpEQ:
		return true
	}
	return false
}

func (j Join) Valid() bool {
	return j == JoinAND || j == JoinOR
}

func (a Action) Valid() bool {
	switch a {
	case ActionDuplicateBudget, ActionTripleBudget, ActionHalveBudget,
		ActionPauseCampaign, ActionCustomMultiplier:
		return true
	}
	return false
}

// Condition is one metric comparison.
type Condition struct {
	Metric   Metric   `json:"metric"`
	Operator Operator `json:"operator"`
	Value    float64  `json:"value"`
}

// Rule is the canonical decision unit. Secondary and JoinOperator are
// meaningful only when IsComposite is set; the evaluator never looks at them
// otherwise.
type Rule struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsComposite  bool      `json:"is_composite"`
	Primary      Condition `json:"primary"`
	Secondary    Condition `json:"secondary"`
	JoinOperator Join      `json:"join_operator"`
	Action       Action    `json:"action_type"`
	ActionValue  float64   `json:"action_value"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RuleRecord is the raw persisted shape of a rule. Two generations of rows
// exist: pre-migration rows carry a single condition in the Legacy* columns,
// newer rows carry Primary*/Secondary*/JoinOperator. Exactly one shape is
// populated per row; Canonical resolves either into a Rule so the evaluator
// stays shape-free.
type RuleRecord struct {
	ID          int64
	Name        string
	Description string
	IsComposite bool

	PrimaryMetric     *string
	PrimaryOperator   *string
	PrimaryValue      *float64
	SecondaryMetric   *string
	SecondaryOperator *string
	SecondaryValue    *float64
	JoinOperator      *string

	LegacyMetric   *string
	LegacyOperator *string
	LegacyValue    *float64

	ActionType  string
	ActionValue *float64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Canonical resolves the persisted shape into the canonical Rule.
func (r RuleRecord) Canonical() Rule {
	rule := Rule{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Action:       Action(r.ActionType),
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		JoinOperator: JoinAND,
	}
	if r.ActionValue != nil {
		rule.ActionValue = *r.ActionValue
	}

	if r.PrimaryMetric == nil && r.LegacyMetric != nil {
		// Pre-migration row: single condition under the old column names.
		rule.Primary = Condition{
			Metric:   Metric(*r.LegacyMetric),
			Operator: Operator(strOr(r.LegacyOperator)),
			Value:    floatOr(r.LegacyValue),
		}
		return rule
	}

	rule.Primary = Condition{
		Metric:   Metric(strOr(r.PrimaryMetric)),
		Operator: Operator(strOr(r.PrimaryOperator)),
		Value:    floatOr(r.PrimaryValue),
	}
	if r.IsComposite {
		rule.IsComposite = true
		rule.Secondary = Condition{
			Metric:   Metric(strOr(r.SecondaryMetric)),
			Operator: Operator(strOr(r.SecondaryOperator)),
			Value:    floatOr(r.SecondaryValue),
		}
		if r.JoinOperator != nil {
			rule.JoinOperator = Join(*r.JoinOperator)
		}
	}
	return rule
}

func strOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOr(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// Snapshot is one campaign's performance for a pass, produced fresh by the
// insights provider. Purchases and CPA are derived from the purchase action
// type; CPA is 0 when no purchase action exists.
type Snapshot struct {
	CampaignID   string  `json:"campaign_id"`
	CampaignName string  `json:"campaign_name"`
	Spend        float64 `json:"spend"`
	Impressions  int64   `json:"impressions"`
	Clicks       int64   `json:"clicks"`
	CTR          float64 `json:"ctr"`
	CPC          float64 `json:"cpc"`
	Purchases    int64   `json:"purchases"`
	CPA          float64 `json:"cpa"`
}
