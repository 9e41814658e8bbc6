// Package scorer owns the in-memory active model snapshot and produces
// fraud predictions. Scoring is stateless per call: goroutines share
// one immutable artifact snapshot, and retraining swaps the snapshot
// atomically instead of mutating it.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/rules"
)

// isFraudThreshold is the scorer's internal diagnostic boundary. It
// happens to match domain.FraudulentThreshold today, but the two are
// separate knobs: moving one must not silently move the other.
const isFraudThreshold = 0.7

// Scorer scores transactions with the active model artifact.
type Scorer struct {
	repo       domain.Repository
	cache      domain.Cache
	rules      *rules.Engine
	profileTTL time.Duration

	active atomic.Pointer[model.Artifact]
}

// New creates a scorer. The active model is loaded lazily on first use
// if LoadActiveModel is never called.
func New(repo domain.Repository, cache domain.Cache, engine *rules.Engine, profileTTL time.Duration) *Scorer {
	if profileTTL <= 0 {
		profileTTL = time.Minute
	}
	return &Scorer{
		repo:       repo,
		cache:      cache,
		rules:      engine,
		profileTTL: profileTTL,
	}
}

// LoadActiveModel loads the active artifact from the repository and
// swaps it in. Missing model is not an error: the scorer falls back to
// the untrained default so scoring stays available.
func (s *Scorer) LoadActiveModel(ctx context.Context) error {
	fm, err := s.repo.GetActiveModel(ctx)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrNoModel) {
		slog.Warn("no active fraud model, using untrained default")
		s.active.Store(model.DefaultArtifact(features.Names))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load active model: %w", err)
	}

	artifact, err := model.Decode(fm.Blob)
	if err != nil {
		return err
	}

	s.active.Store(artifact)
	slog.Info("active model loaded", "version", artifact.Version)
	return nil
}

// Swap replaces the active snapshot. Called by the trainer after it
// activates a new artifact.
func (s *Scorer) Swap(artifact *model.Artifact) {
	s.active.Store(artifact)
}

// ActiveVersion returns the version of the current snapshot.
func (s *Scorer) ActiveVersion() string {
	return s.snapshot().Version
}

// Predict scores a request from the scoring boundary. CreatedAt is
// ISO-8601; a malformed or absent timestamp falls back to the feature
// extractor's documented defaults.
func (s *Scorer) Predict(ctx context.Context, req domain.ScoreRequest) (*domain.Prediction, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	var createdAt time.Time
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: created_at must be ISO-8601", domain.ErrInvalidInput)
		}
		createdAt = t.UTC()
	}

	profile, err := s.senderProfile(ctx, req.SenderID, createdAt)
	if err != nil {
		return nil, err
	}

	pred, _ := s.score(features.Input{
		Amount:    req.Amount,
		CreatedAt: createdAt,
		Profile:   *profile,
	})
	return pred, nil
}

// ScoreTransaction scores a persisted transaction. It returns the
// prediction together with the raw feature vector so the caller can
// persist the row for retraining.
func (s *Scorer) ScoreTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Prediction, []float64, error) {
	profile, err := s.senderProfile(ctx, tx.SenderID, tx.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	pred, raw := s.score(features.Input{
		Amount:    tx.Amount,
		CreatedAt: tx.CreatedAt,
		Profile:   *profile,
	})
	return pred, raw, nil
}

// score runs feature extraction, scaling, the classifier, and the
// risk-factor rules. The raw vector feeds the rules; the scaled one
// feeds the model. Both representations are kept explicit.
func (s *Scorer) score(in features.Input) (*domain.Prediction, []float64) {
	artifact := s.snapshot()

	raw := features.Extract(in)
	scaled := artifact.Scaler.Transform(raw)
	score := artifact.Classifier.PredictProba(scaled)

	var riskFactors []string
	if s.rules != nil {
		riskFactors = s.rules.Evaluate(raw)
	}

	return &domain.Prediction{
		FraudScore:   score,
		IsFraud:      score >= isFraudThreshold,
		Confidence:   Confidence(score),
		RiskFactors:  riskFactors,
		ModelVersion: artifact.Version,
	}, raw
}

// Confidence measures decisiveness, not correctness: 0 at the score
// midpoint, 1 at either extreme.
func Confidence(score float64) float64 {
	return 2 * math.Abs(score-0.5)
}

// snapshot returns the current artifact, installing the untrained
// default on first use if nothing was loaded.
func (s *Scorer) snapshot() *model.Artifact {
	if a := s.active.Load(); a != nil {
		return a
	}
	def := model.DefaultArtifact(features.Names)
	if s.active.CompareAndSwap(nil, def) {
		slog.Warn("scorer initialized with untrained default model")
	}
	return s.active.Load()
}

// senderProfile resolves a sender history summary, preferring the
// cache. A missing repository summary degrades to an empty profile so
// first-time senders still score.
func (s *Scorer) senderProfile(ctx context.Context, senderID string, before time.Time) (*domain.SenderProfile, error) {
	if senderID == "" {
		return &domain.SenderProfile{}, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.GetSenderProfile(ctx, senderID); err == nil && cached != nil {
			return cached, nil
		}
	}

	if before.IsZero() {
		before = time.Now().UTC()
	}

	profile, err := s.repo.SenderSummary(ctx, senderID, before)
	if errors.Is(err, domain.ErrNotFound) {
		profile = &domain.SenderProfile{SenderID: senderID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load sender summary: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetSenderProfile(ctx, senderID, profile, s.profileTTL); err != nil {
			slog.Debug("failed to cache sender profile", "sender_id", senderID, "error", err)
		}
	}
	return profile, nil
}
