// Package stats maintains the per-day transaction aggregates. The
// aggregator is the only contended shared state in the pipeline:
// concurrent record/adjust calls for the same date are serialized
// through striped per-date locks on top of single-row atomic updates in
// the repository, so two writers on one day never lose an update.
// Cross-date operations proceed in parallel.
package stats

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

const lockStripes = 64

// Aggregator maintains DailyStat rows.
type Aggregator struct {
	repo  domain.Repository
	locks [lockStripes]sync.Mutex
}

// New creates a stats aggregator.
func New(repo domain.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// Record finds or creates the DailyStat for the transaction's date and
// applies the new transaction: totals, amount, and exactly one status
// counter.
func (a *Aggregator) Record(ctx context.Context, tx *domain.Transaction) error {
	if !domain.ValidStatus(tx.Status) {
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, tx.Status)
	}

	date := Day(tx.CreatedAt)
	lock := a.lockFor(date)
	lock.Lock()
	defer lock.Unlock()

	return a.repo.IncrementDailyStat(ctx, date, tx.Status, tx.Amount)
}

// Adjust rebalances status counters after an administrative status
// correction. The transaction already counted toward its day, so total
// and amount are untouched; the previous status counter is decremented
// (floored at zero) and the new one incremented. Equal statuses are a
// no-op.
func (a *Aggregator) Adjust(ctx context.Context, tx *domain.Transaction, previous domain.Status) error {
	if !domain.ValidStatus(tx.Status) || !domain.ValidStatus(previous) {
		return fmt.Errorf("%w: unknown status", domain.ErrInvalidInput)
	}
	if previous == tx.Status {
		return nil
	}

	date := Day(tx.CreatedAt)
	lock := a.lockFor(date)
	lock.Lock()
	defer lock.Unlock()

	return a.repo.AdjustDailyStat(ctx, date, previous, tx.Status)
}

// PeriodStats sums daily stats over the inclusive date range and builds
// the per-day count distribution, with zero entries for empty days.
func (a *Aggregator) PeriodStats(ctx context.Context, start, end time.Time) (*domain.PeriodStats, error) {
	start = Day(start)
	end = Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", domain.ErrInvalidInput)
	}

	days, err := a.repo.ListDailyStats(ctx, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*domain.DailyStat, len(days))
	out := &domain.PeriodStats{DailyDistribution: make(map[string]int64)}
	for _, d := range days {
		byDate[d.Date.Format("2006-01-02")] = d
		out.Total += d.TotalTransactions
		out.Legitimate += d.LegitimateCount
		out.PossiblyFraudulent += d.PossiblyFraudulentCount
		out.Fraudulent += d.FraudulentCount
		out.TotalAmount += d.TotalAmount
	}

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if d, ok := byDate[key]; ok {
			out.DailyDistribution[key] = d.TotalTransactions
		} else {
			out.DailyDistribution[key] = 0
		}
	}

	return out, nil
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (a *Aggregator) lockFor(date time.Time) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(date.Format("2006-01-02")))
	return &a.locks[h.Sum32()%lockStripes]
}
