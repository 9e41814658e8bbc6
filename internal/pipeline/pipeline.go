// Package pipeline orchestrates the transaction scoring flow: persist
// intake, score, classify, persist the verdict, update daily stats, and
// raise fraud alerts. A failed risk assessment never blocks the
// underlying transfer; the transaction stays legitimate and unscored
// and submission still succeeds.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
	"github.com/kestrelhq/kestrel/internal/stats"
)

// Scorer produces a fraud prediction for a persisted transaction. The
// raw feature vector is nil when the implementation cannot expose it
// (remote scorers).
type Scorer interface {
	ScoreTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Prediction, []float64, error)
}

// Pipeline wires the scoring flow together.
type Pipeline struct {
	repo       domain.Repository
	scorer     Scorer
	aggregator *stats.Aggregator
	bus        domain.EventBus
	cache      domain.Cache
	timeout    time.Duration
}

// New creates a pipeline. The bus and cache are optional; without them
// alerts are only logged and alert counters are skipped.
func New(repo domain.Repository, sc Scorer, agg *stats.Aggregator, bus domain.EventBus, cache domain.Cache, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Pipeline{
		repo:       repo,
		scorer:     sc,
		aggregator: agg,
		bus:        bus,
		cache:      cache,
		timeout:    timeout,
	}
}

// Submit runs the full intake-and-scoring flow and returns the
// persisted transaction. Validation failures reject before any state
// mutation; scoring failures are logged and swallowed.
func (p *Pipeline) Submit(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx := req.ToTransaction()
	tx.ID = uuid.New().String()

	if err := p.repo.SaveTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	scoreCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	pred, raw, err := p.scorer.ScoreTransaction(scoreCtx, tx)
	if err != nil {
		// The transfer already happened; a scoring failure leaves the
		// transaction legitimate and unscored rather than failing the
		// submission.
		slog.Error("risk scoring failed, transaction kept legitimate",
			"tx_id", tx.ID,
			"error", err,
		)
		return tx, nil
	}

	status := domain.StatusForScore(pred.FraudScore)
	if err := p.repo.UpdateTransactionScore(ctx, tx.ID, pred.FraudScore, status); err != nil {
		slog.Error("failed to persist score", "tx_id", tx.ID, "error", err)
		return tx, nil
	}

	score := pred.FraudScore
	tx.FraudScore = &score
	tx.Status = status

	if err := p.aggregator.Record(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record daily stats: %w", err)
	}

	p.saveTrainingExample(ctx, tx, raw)

	if status == domain.StatusFraudulent {
		p.raiseAlert(ctx, tx, pred)
	}

	slog.Info("transaction scored",
		"tx_id", tx.ID,
		"sender_id", tx.SenderID,
		"score", pred.FraudScore,
		"status", status,
		"model_version", pred.ModelVersion,
	)

	return tx, nil
}

// UpdateStatus applies an administrative status correction: no
// re-scoring, fraud_score untouched, stats rebalanced through the
// adjustment path.
func (p *Pipeline) UpdateStatus(ctx context.Context, txID string, newStatus domain.Status) (*domain.Transaction, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, newStatus)
	}

	tx, err := p.repo.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	previous := tx.Status
	if previous == newStatus {
		return tx, nil
	}

	if err := p.repo.UpdateTransactionStatus(ctx, txID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	tx.Status = newStatus

	if err := p.aggregator.Adjust(ctx, tx, previous); err != nil {
		return nil, fmt.Errorf("failed to adjust daily stats: %w", err)
	}

	p.publish(ctx, domain.TopicStatusCorrected, map[string]any{
		"transactionId": tx.ID,
		"from":          previous,
		"to":            newStatus,
	})

	slog.Info("transaction status corrected",
		"tx_id", tx.ID,
		"from", previous,
		"to", newStatus,
	)

	return tx, nil
}

// saveTrainingExample persists the scored feature row for later
// retraining. Best effort.
func (p *Pipeline) saveTrainingExample(ctx context.Context, tx *domain.Transaction, raw []float64) {
	if raw == nil {
		return
	}

	label := 0
	if tx.Status == domain.StatusFraudulent {
		label = 1
	}
	if err := p.repo.SaveTrainingExample(ctx, features.ToExample(raw, label)); err != nil {
		slog.Debug("failed to persist training example", "tx_id", tx.ID, "error", err)
	}
}

// raiseAlert publishes a fraud alert. Fire-and-forget: a notification
// failure never rolls back the transaction.
func (p *Pipeline) raiseAlert(ctx context.Context, tx *domain.Transaction, pred *domain.Prediction) {
	slog.Warn("fraud alert",
		"tx_id", tx.ID,
		"sender_id", tx.SenderID,
		"amount", tx.Amount,
		"score", pred.FraudScore,
		"risk_factors", pred.RiskFactors,
	)

	p.publish(ctx, domain.TopicFraudAlert, domain.FraudAlert{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		Amount:        tx.Amount,
		FraudScore:    pred.FraudScore,
		RiskFactors:   pred.RiskFactors,
		ModelVersion:  pred.ModelVersion,
	})

	if p.cache != nil {
		day := stats.Day(tx.CreatedAt).Format("2006-01-02")
		if _, err := p.cache.IncrementCounter(ctx, "alerts:"+day, 24*time.Hour); err != nil {
			slog.Debug("failed to bump alert counter", "error", err)
		}
	}
}

func (p *Pipeline) publish(ctx context.Context, topic string, payload any) {
	if p.bus == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := p.bus.Publish(ctx, topic, body); err != nil {
		slog.Error("failed to publish event", "topic", topic, "error", err)
	}
}
