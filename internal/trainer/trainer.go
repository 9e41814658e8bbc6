// Package trainer fits new fraud models and activates them. A training
// run never touches the currently active model until the new artifact
// is fully persisted; activation is a single repository transition plus
// one atomic scorer swap.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
	"github.com/kestrelhq/kestrel/internal/model"
	"github.com/kestrelhq/kestrel/internal/scorer"
)

// ErrBadDataset marks training input that cannot be used. The run
// aborts and the active model stays untouched.
var ErrBadDataset = errors.New("invalid training dataset")

// splitSeed fixes the train/test shuffle for reproducible evaluation.
const splitSeed = 42

// testFraction is the held-out share of the dataset.
const testFraction = 0.2

// Trainer runs training jobs against an ordered data-source chain.
type Trainer struct {
	repo    domain.Repository
	scorer  *scorer.Scorer
	sources []DataSource
}

// New creates a trainer. The scorer may be nil (training CLI); when
// present its snapshot is swapped after successful activation.
func New(repo domain.Repository, sc *scorer.Scorer, sources ...DataSource) *Trainer {
	if len(sources) == 0 {
		sources = []DataSource{SyntheticSource{}}
	}
	return &Trainer{repo: repo, scorer: sc, sources: sources}
}

// Train fits, evaluates, persists, and activates a new model. On any
// failure the previously active model remains active.
func (t *Trainer) Train(ctx context.Context) (*domain.TrainingResult, error) {
	start := time.Now()

	ds, source, err := loadFromSources(ctx, t.sources)
	if err != nil {
		return nil, err
	}

	slog.Info("training dataset loaded", "source", source, "samples", ds.Len())

	trainSet, testSet := split(ds)
	if trainSet.Len() == 0 || testSet.Len() == 0 {
		return nil, fmt.Errorf("%w: %d samples is not enough for a train/test split", ErrBadDataset, ds.Len())
	}

	scaler := model.NewScaler()
	if err := scaler.Fit(trainSet.Rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataset, err)
	}

	clf := model.NewLogistic(features.Count)
	if err := clf.Fit(scaler.TransformAll(trainSet.Rows), trainSet.Labels); err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	testScaled := scaler.TransformAll(testSet.Rows)
	preds := make([]int, len(testScaled))
	probs := make([]float64, len(testScaled))
	for i, row := range testScaled {
		probs[i] = clf.PredictProba(row)
		preds[i] = clf.Predict(row)
	}
	metrics := model.Evaluate(testSet.Labels, preds, probs)

	version := fmt.Sprintf("v1.%s", time.Now().UTC().Format("200601021504"))
	artifact := &model.Artifact{
		Version:      version,
		FeatureNames: append([]string(nil), features.Names...),
		Scaler:       scaler,
		Classifier:   clf,
	}

	blob, err := artifact.Encode()
	if err != nil {
		return nil, err
	}

	fm := &domain.FraudModel{
		Version:      version,
		FeatureNames: artifact.FeatureNames,
		Blob:         blob,
		Accuracy:     metrics.Accuracy,
		Precision:    metrics.Precision,
		Recall:       metrics.Recall,
		F1:           metrics.F1,
		AUC:          metrics.AUC,
		CreatedAt:    time.Now().UTC(),
	}

	if t.repo != nil {
		if err := t.repo.SaveModel(ctx, fm); err != nil {
			return nil, fmt.Errorf("failed to persist model artifact: %w", err)
		}
		if err := t.repo.ActivateModel(ctx, version); err != nil {
			return nil, fmt.Errorf("failed to activate model: %w", err)
		}
	}

	if t.scorer != nil {
		t.scorer.Swap(artifact)
	}

	slog.Info("model trained",
		"version", version,
		"source", source,
		"samples", ds.Len(),
		"accuracy", metrics.Accuracy,
		"precision", metrics.Precision,
		"recall", metrics.Recall,
		"f1", metrics.F1,
		"auc", metrics.AUC,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &domain.TrainingResult{
		Version:   version,
		Accuracy:  metrics.Accuracy,
		Precision: metrics.Precision,
		Recall:    metrics.Recall,
		F1:        metrics.F1,
		AUC:       metrics.AUC,
		Samples:   ds.Len(),
		Source:    source,
	}, nil
}

// split shuffles with a fixed seed and carves off the held-out set.
func split(ds *Dataset) (train, test *Dataset) {
	rng := rand.New(rand.NewSource(splitSeed))
	order := rng.Perm(ds.Len())

	testSize := int(float64(ds.Len()) * testFraction)
	train = &Dataset{}
	test = &Dataset{}

	for i, idx := range order {
		if i < testSize {
			test.Rows = append(test.Rows, ds.Rows[idx])
			test.Labels = append(test.Labels, ds.Labels[idx])
		} else {
			train.Rows = append(train.Rows, ds.Rows[idx])
			train.Labels = append(train.Labels, ds.Labels[idx])
		}
	}
	return train, test
}
