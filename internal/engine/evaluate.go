package engine

// Evaluate reports whether a rule's condition holds for a snapshot. It never
// fails: an unrecognized metric or operator makes that sub-condition false.
func Evaluate(r Rule, s Snapshot) bool {
	primary := conditionMet(r.Primary, s)
	if !r.IsComposite {
		return primary
	}
	secondary := conditionMet(r.Secondary, s)
	switch r.JoinOperator {
	case JoinAND:
		return primary && secondary
	case JoinOR:
		return primary || secondary
	default:
		return primary
	}
}

func conditionMet(c Condition, s Snapshot) bool {
	v, ok := metricValue(c.Metric, s)
	if !ok {
		return false
	}
	switch c.Operator {
	case OpLT:
		return v < c.Value
	case OpLE:
		return v <= c.Value
	case OpGT:
		return v > c.Value
	case OpGE:
		return v >= c.Value
	case OpEQ:
		// Exact comparison, no epsilon. On CPA this almost never matches for
		// non-exact decimals; kept as-is rather than guessing intent.
		return v == c.Value
	default:
		return false
	}
}

func metricValue(m Metric, s Snapshot) (float64, bool) {
	switch m {
	case MetricCPA:
		return s.CPA, true
	case MetricPurchases:
		return float64(s.Purchases), true
	default:
		return 0, false
	}
}
