// Package features converts transactions into the fixed-order numeric
// vector shared by training and inference. The column order in Names is
// the binding contract between the trainer and the scorer; both sides
// must read it from here and nowhere else.
package features

import (
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

// Names is the ordered feature column list.
var Names = []string{
	"amount",
	"hour_of_day",
	"day_of_week",
	"is_weekend",
	"sender_avg_amount",
	"sender_transaction_count",
	"sender_transaction_frequency",
	"amount_deviation",
}

// Column indexes into the feature vector.
const (
	IdxAmount = iota
	IdxHourOfDay
	IdxDayOfWeek
	IdxIsWeekend
	IdxSenderAvgAmount
	IdxSenderTxCount
	IdxSenderFrequency
	IdxAmountDeviation
)

// Count is the vector length.
var Count = len(Names)

// Input carries the raw values feature extraction needs.
type Input struct {
	Amount    float64
	CreatedAt time.Time
	Profile   domain.SenderProfile
}

// Extract produces the fixed-length feature vector for one transaction.
// A zero CreatedAt falls back to hour 12, weekday 0 (Monday); the
// fallback lives here so no caller zero-fills temporal columns
// differently.
func Extract(in Input) []float64 {
	hour := 12.0
	day := 0.0
	if !in.CreatedAt.IsZero() {
		hour = float64(in.CreatedAt.Hour())
		day = float64(weekday(in.CreatedAt))
	}

	weekend := 0.0
	if day >= 5 {
		weekend = 1.0
	}

	v := make([]float64, Count)
	v[IdxAmount] = in.Amount
	v[IdxHourOfDay] = hour
	v[IdxDayOfWeek] = day
	v[IdxIsWeekend] = weekend
	v[IdxSenderAvgAmount] = in.Profile.AvgAmount
	v[IdxSenderTxCount] = float64(in.Profile.TransactionCount)
	v[IdxSenderFrequency] = in.Profile.Frequency
	v[IdxAmountDeviation] = AmountDeviation(in.Amount, in.Profile.AvgAmount)
	return v
}

// AmountDeviation is the relative distance of amount from the sender's
// historical average, zero for senders with no history.
func AmountDeviation(amount, avgAmount float64) float64 {
	if avgAmount <= 0 {
		return 0
	}
	return (amount - avgAmount) / max(avgAmount, 1)
}

// FromExample rebuilds a vector from a persisted training row.
func FromExample(ex *domain.TrainingExample) []float64 {
	return []float64{
		ex.Amount,
		ex.HourOfDay,
		ex.DayOfWeek,
		ex.IsWeekend,
		ex.SenderAvgAmount,
		ex.SenderTxCount,
		ex.SenderFrequency,
		ex.AmountDeviation,
	}
}

// ToExample converts a vector and label into a persistable training
// row.
func ToExample(v []float64, isFraud int) *domain.TrainingExample {
	return &domain.TrainingExample{
		Amount:          v[IdxAmount],
		HourOfDay:       v[IdxHourOfDay],
		DayOfWeek:       v[IdxDayOfWeek],
		IsWeekend:       v[IdxIsWeekend],
		SenderAvgAmount: v[IdxSenderAvgAmount],
		SenderTxCount:   v[IdxSenderTxCount],
		SenderFrequency: v[IdxSenderFrequency],
		AmountDeviation: v[IdxAmountDeviation],
		IsFraud:         isFraud,
	}
}

// weekday maps time.Weekday (Sunday=0) to the 0=Monday..6=Sunday
// convention the model was trained with.
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
