package domain

// RiskRule defines one risk-factor check. Rules run against the raw
// (pre-scaling) feature values, independently of the model score, and
// contribute a fixed human-readable reason when they match.
type RiskRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Expression is a CEL expression over the raw feature variables.
	// It must evaluate to bool.
	Expression string `json:"expression"`

	// Reason is appended to the prediction's risk factors when the
	// expression evaluates to true.
	Reason string `json:"reason"`

	// Priority orders rule evaluation; lower runs first. Matching
	// reasons appear in this order.
	Priority int `json:"priority"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}
