package rules

import (
	"reflect"
	"testing"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
)

// vector builds a raw feature vector from a sparse set of columns.
func vector(set map[int]float64) []float64 {
	v := make([]float64, features.Count)
	for i, val := range set {
		v[i] = val
	}
	return v
}

func TestBuiltinRules(t *testing.T) {
	engine, err := NewBuiltinEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if engine.RulesCount() != 4 {
		t.Fatalf("expected 4 builtin rules, got %d", engine.RulesCount())
	}

	t.Run("CleanTransactionNoReasons", func(t *testing.T) {
		// Weekday afternoon, established sender, amount near average
		raw := vector(map[int]float64{
			features.IdxAmount:          100,
			features.IdxHourOfDay:       14,
			features.IdxDayOfWeek:       2,
			features.IdxSenderAvgAmount: 95,
			features.IdxSenderTxCount:   20,
		})

		reasons := engine.Evaluate(raw)
		if len(reasons) != 0 {
			t.Errorf("expected no reasons, got %v", reasons)
		}
	})

	t.Run("HighAmount", func(t *testing.T) {
		raw := vector(map[int]float64{
			features.IdxAmount:          1000,
			features.IdxHourOfDay:       14,
			features.IdxSenderAvgAmount: 100,
			features.IdxSenderTxCount:   20,
		})

		reasons := engine.Evaluate(raw)
		if !reflect.DeepEqual(reasons, []string{ReasonHighAmount}) {
			t.Errorf("expected [%s], got %v", ReasonHighAmount, reasons)
		}
	})

	t.Run("NoHistoryNoHighAmount", func(t *testing.T) {
		// Zero average must not trip the high-amount check, only the
		// new-sender one.
		raw := vector(map[int]float64{
			features.IdxAmount:    5000,
			features.IdxHourOfDay: 14,
		})

		reasons := engine.Evaluate(raw)
		if !reflect.DeepEqual(reasons, []string{ReasonNewSender}) {
			t.Errorf("expected [%s], got %v", ReasonNewSender, reasons)
		}
	})

	t.Run("NightHourBoundaries", func(t *testing.T) {
		cases := []struct {
			hour  float64
			match bool
		}{
			{22, true}, {23, true}, {0, true}, {5, true},
			{6, false}, {21, false}, {12, false},
		}
		for _, tc := range cases {
			raw := vector(map[int]float64{
				features.IdxAmount:        100,
				features.IdxHourOfDay:     tc.hour,
				features.IdxSenderTxCount: 20,
			})
			reasons := engine.Evaluate(raw)
			got := len(reasons) == 1 && reasons[0] == ReasonNightHours
			if got != tc.match {
				t.Errorf("hour %v: expected match=%v, got %v", tc.hour, tc.match, reasons)
			}
		}
	})

	t.Run("NewSenderBoundary", func(t *testing.T) {
		for _, tc := range []struct {
			count float64
			match bool
		}{{0, true}, {1, true}, {2, false}} {
			raw := vector(map[int]float64{
				features.IdxAmount:        100,
				features.IdxHourOfDay:     14,
				features.IdxSenderTxCount: tc.count,
			})
			reasons := engine.Evaluate(raw)
			got := len(reasons) == 1 && reasons[0] == ReasonNewSender
			if got != tc.match {
				t.Errorf("count %v: expected match=%v, got %v", tc.count, tc.match, reasons)
			}
		}
	})

	t.Run("AllReasonsInRuleOrder", func(t *testing.T) {
		// Night weekend transaction from a new sender at 10x average
		raw := vector(map[int]float64{
			features.IdxAmount:          1000,
			features.IdxHourOfDay:       2,
			features.IdxDayOfWeek:       6,
			features.IdxIsWeekend:       1,
			features.IdxSenderAvgAmount: 100,
		})

		want := []string{ReasonHighAmount, ReasonNightHours, ReasonNewSender, ReasonWeekend}
		reasons := engine.Evaluate(raw)
		if !reflect.DeepEqual(reasons, want) {
			t.Errorf("expected %v, got %v", want, reasons)
		}
	})
}

func TestEngine(t *testing.T) {
	t.Run("LoadCustomRule", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		rule := &domain.RiskRule{
			ID:         "tiny-amount",
			Name:       "Tiny amount",
			Expression: "amount < 10.0",
			Reason:     "unusually small transaction",
			Priority:   5,
			Enabled:    true,
		}
		if err := engine.LoadRule(rule); err != nil {
			t.Fatalf("LoadRule failed: %v", err)
		}

		raw := vector(map[int]float64{features.IdxAmount: 5})
		reasons := engine.Evaluate(raw)
		if !reflect.DeepEqual(reasons, []string{"unusually small transaction"}) {
			t.Errorf("expected custom reason, got %v", reasons)
		}
	})

	t.Run("ReplaceByID", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		rule := &domain.RiskRule{
			ID:         "r1",
			Expression: "amount > 100.0",
			Reason:     "first",
			Enabled:    true,
		}
		if err := engine.LoadRule(rule); err != nil {
			t.Fatalf("LoadRule failed: %v", err)
		}

		replacement := &domain.RiskRule{
			ID:         "r1",
			Expression: "amount > 200.0",
			Reason:     "second",
			Enabled:    true,
		}
		if err := engine.LoadRule(replacement); err != nil {
			t.Fatalf("LoadRule failed: %v", err)
		}

		if engine.RulesCount() != 1 {
			t.Fatalf("expected 1 rule after replacement, got %d", engine.RulesCount())
		}

		raw := vector(map[int]float64{features.IdxAmount: 150})
		if reasons := engine.Evaluate(raw); len(reasons) != 0 {
			t.Errorf("expected replaced rule to not match 150, got %v", reasons)
		}
	})

	t.Run("DisabledRulesSkipped", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		err = engine.LoadRules([]*domain.RiskRule{
			{ID: "off", Expression: "amount > 0.0", Reason: "always", Enabled: false},
		})
		if err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if engine.RulesCount() != 0 {
			t.Errorf("expected disabled rule to be skipped, got %d rules", engine.RulesCount())
		}
	})

	t.Run("RejectsBadExpression", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		bad := &domain.RiskRule{ID: "bad", Expression: "amount >", Reason: "x", Enabled: true}
		if err := engine.ValidateRule(bad); err == nil {
			t.Error("expected compile error for malformed expression")
		}
	})

	t.Run("RejectsNonBool", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		notBool := &domain.RiskRule{ID: "nb", Expression: "amount + 1.0", Reason: "x", Enabled: true}
		if err := engine.ValidateRule(notBool); err == nil {
			t.Error("expected error for non-bool expression")
		}
	})

	t.Run("RejectsMissingReason", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		noReason := &domain.RiskRule{ID: "nr", Expression: "amount > 0.0", Enabled: true}
		if err := engine.ValidateRule(noReason); err == nil {
			t.Error("expected error for missing reason")
		}
	})

	t.Run("PriorityOrder", func(t *testing.T) {
		engine, err := NewEngine()
		if err != nil {
			t.Fatalf("failed to create engine: %v", err)
		}

		err = engine.LoadRules([]*domain.RiskRule{
			{ID: "later", Expression: "amount > 0.0", Reason: "b", Priority: 20, Enabled: true},
			{ID: "earlier", Expression: "amount > 0.0", Reason: "a", Priority: 10, Enabled: true},
		})
		if err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}

		raw := vector(map[int]float64{features.IdxAmount: 1})
		if reasons := engine.Evaluate(raw); !reflect.DeepEqual(reasons, []string{"a", "b"}) {
			t.Errorf("expected priority order [a b], got %v", reasons)
		}
	})
}
