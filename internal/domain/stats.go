package domain

import "time"

// DailyStat is the per-calendar-day aggregate of transaction counts and
// amounts by status. One record exists per day, created lazily on the
// first transaction of that day.
//
// Invariant: LegitimateCount + PossiblyFraudulentCount + FraudulentCount
// == TotalTransactions after every completed record or adjustment.
type DailyStat struct {
	Date                    time.Time `json:"date"`
	TotalTransactions       int64     `json:"totalTransactions"`
	LegitimateCount         int64     `json:"legitimateCount"`
	PossiblyFraudulentCount int64     `json:"possiblyFraudulentCount"`
	FraudulentCount         int64     `json:"fraudulentCount"`
	TotalAmount             float64   `json:"totalAmount"`
}

// PeriodStats aggregates daily stats over an inclusive date range.
type PeriodStats struct {
	Total              int64            `json:"total"`
	Legitimate         int64            `json:"legitimate"`
	PossiblyFraudulent int64            `json:"possibly_fraudulent"`
	Fraudulent         int64            `json:"fraudulent"`
	TotalAmount        float64          `json:"total_amount"`
	DailyDistribution  map[string]int64 `json:"daily_distribution"`
}
