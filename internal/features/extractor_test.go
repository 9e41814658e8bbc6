package features

import (
	"math"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

func TestExtract(t *testing.T) {
	t.Run("VectorOrder", func(t *testing.T) {
		// Wednesday 2025-06-11 15:30 UTC
		created := time.Date(2025, 6, 11, 15, 30, 0, 0, time.UTC)

		v := Extract(Input{
			Amount:    250,
			CreatedAt: created,
			Profile: domain.SenderProfile{
				AvgAmount:        100,
				TransactionCount: 12,
				Frequency:        1.5,
			},
		})

		if len(v) != Count {
			t.Fatalf("expected %d features, got %d", Count, len(v))
		}
		if v[IdxAmount] != 250 {
			t.Errorf("expected amount 250, got %v", v[IdxAmount])
		}
		if v[IdxHourOfDay] != 15 {
			t.Errorf("expected hour 15, got %v", v[IdxHourOfDay])
		}
		if v[IdxDayOfWeek] != 2 {
			t.Errorf("expected Wednesday=2, got %v", v[IdxDayOfWeek])
		}
		if v[IdxIsWeekend] != 0 {
			t.Errorf("expected is_weekend 0, got %v", v[IdxIsWeekend])
		}
		if v[IdxSenderAvgAmount] != 100 {
			t.Errorf("expected avg 100, got %v", v[IdxSenderAvgAmount])
		}
		if v[IdxSenderTxCount] != 12 {
			t.Errorf("expected count 12, got %v", v[IdxSenderTxCount])
		}
		if v[IdxSenderFrequency] != 1.5 {
			t.Errorf("expected frequency 1.5, got %v", v[IdxSenderFrequency])
		}
		if math.Abs(v[IdxAmountDeviation]-1.5) > 1e-9 {
			t.Errorf("expected deviation 1.5, got %v", v[IdxAmountDeviation])
		}
	})

	t.Run("ZeroTimestampFallback", func(t *testing.T) {
		v := Extract(Input{Amount: 50})

		if v[IdxHourOfDay] != 12 {
			t.Errorf("expected fallback hour 12, got %v", v[IdxHourOfDay])
		}
		if v[IdxDayOfWeek] != 0 {
			t.Errorf("expected fallback weekday 0, got %v", v[IdxDayOfWeek])
		}
		if v[IdxIsWeekend] != 0 {
			t.Errorf("expected is_weekend 0, got %v", v[IdxIsWeekend])
		}
	})

	t.Run("WeekdayMapping", func(t *testing.T) {
		// 2025-06-09 is a Monday, 2025-06-15 a Sunday
		cases := []struct {
			day  int
			want float64
		}{
			{9, 0}, {10, 1}, {11, 2}, {12, 3}, {13, 4}, {14, 5}, {15, 6},
		}
		for _, tc := range cases {
			created := time.Date(2025, 6, tc.day, 10, 0, 0, 0, time.UTC)
			v := Extract(Input{Amount: 1, CreatedAt: created})
			if v[IdxDayOfWeek] != tc.want {
				t.Errorf("June %d: expected day_of_week %v, got %v", tc.day, tc.want, v[IdxDayOfWeek])
			}
			wantWeekend := 0.0
			if tc.want >= 5 {
				wantWeekend = 1.0
			}
			if v[IdxIsWeekend] != wantWeekend {
				t.Errorf("June %d: expected is_weekend %v, got %v", tc.day, wantWeekend, v[IdxIsWeekend])
			}
		}
	})

	t.Run("NoHistoryZeroDeviation", func(t *testing.T) {
		v := Extract(Input{
			Amount:    5000,
			CreatedAt: time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC),
		})
		if v[IdxAmountDeviation] != 0 {
			t.Errorf("expected deviation 0 for empty profile, got %v", v[IdxAmountDeviation])
		}
	})
}

func TestAmountDeviation(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		avg    float64
		want   float64
	}{
		{"above average", 200, 100, 1.0},
		{"below average", 50, 100, -0.5},
		{"equal", 100, 100, 0},
		{"no history", 100, 0, 0},
		{"negative average", 100, -5, 0},
		{"tiny average uses floor", 10, 0.5, 9.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AmountDeviation(tc.amount, tc.avg)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestExampleRoundTrip(t *testing.T) {
	v := []float64{120, 3, 6, 1, 80, 4, 0.2, 0.5}
	ex := ToExample(v, 1)
	if ex.IsFraud != 1 {
		t.Fatalf("expected label 1, got %d", ex.IsFraud)
	}

	back := FromExample(ex)
	if len(back) != len(v) {
		t.Fatalf("expected %d features, got %d", len(v), len(back))
	}
	for i := range v {
		if back[i] != v[i] {
			t.Errorf("column %s: expected %v, got %v", Names[i], v[i], back[i])
		}
	}
}
