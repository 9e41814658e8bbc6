package rules

import "github.com/kestrelhq/kestrel/internal/domain"

// Builtin risk-factor reasons. The strings are part of the scoring
// response contract; change them and downstream review tooling breaks.
const (
	ReasonHighAmount = "amount significantly above user average"
	ReasonNightHours = "nighttime transaction"
	ReasonNewSender  = "few prior transactions for sender"
	ReasonWeekend    = "weekend transaction"
)

// BuiltinRules returns the default risk-factor checks in their fixed
// evaluation order.
func BuiltinRules() []*domain.RiskRule {
	return []*domain.RiskRule{
		{
			ID:          "high-amount",
			Name:        "Amount above sender average",
			Description: "Amount exceeds three times the sender's historical average",
			Expression:  "sender_avg_amount > 0.0 && amount > sender_avg_amount * 3.0",
			Reason:      ReasonHighAmount,
			Priority:    10,
			Enabled:     true,
		},
		{
			ID:          "night-hours",
			Name:        "Nighttime transaction",
			Description: "Created between 22:00 and 06:00",
			Expression:  "hour_of_day >= 22.0 || hour_of_day < 6.0",
			Reason:      ReasonNightHours,
			Priority:    20,
			Enabled:     true,
		},
		{
			ID:          "new-sender",
			Name:        "New or rare sender",
			Description: "Sender has at most one prior transaction",
			Expression:  "sender_transaction_count <= 1.0",
			Reason:      ReasonNewSender,
			Priority:    30,
			Enabled:     true,
		},
		{
			ID:          "weekend",
			Name:        "Weekend transaction",
			Description: "Created on Saturday or Sunday",
			Expression:  "day_of_week >= 5.0",
			Reason:      ReasonWeekend,
			Priority:    40,
			Enabled:     true,
		},
	}
}

// NewBuiltinEngine creates an engine preloaded with the builtin rules.
func NewBuiltinEngine() (*Engine, error) {
	e, err := NewEngine()
	if err != nil {
		return nil, err
	}
	if err := e.LoadRules(BuiltinRules()); err != nil {
		return nil, err
	}
	return e, nil
}
