package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
)

// DataSource supplies a training dataset. Sources are tried in order;
// the first one returning a non-empty dataset wins. A source returning
// (nil, nil) declines and the chain moves on.
type DataSource interface {
	Name() string
	Load(ctx context.Context) (*Dataset, error)
}

// CSVSource loads a labeled dataset from a CSV file. Missing required
// columns are a hard error, not a decline: a supplied file that cannot
// be used must abort the run.
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string { return "csv:" + s.Path }

func (s CSVSource) Load(ctx context.Context) (*Dataset, error) {
	if s.Path == "" {
		return nil, nil
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataset, err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// RepositorySource loads persisted labeled feature rows. It declines
// when fewer than MinExamples rows exist; a trainer should not fit on a
// handful of observations when the synthetic fallback is available.
type RepositorySource struct {
	Repo        domain.Repository
	MinExamples int
}

func (s RepositorySource) Name() string { return "repository" }

func (s RepositorySource) Load(ctx context.Context) (*Dataset, error) {
	if s.Repo == nil {
		return nil, nil
	}

	minExamples := s.MinExamples
	if minExamples <= 0 {
		minExamples = 50
	}

	examples, err := s.Repo.ListTrainingExamples(ctx)
	if err != nil {
		slog.Warn("failed to load training examples, falling through", "error", err)
		return nil, nil
	}
	if len(examples) < minExamples {
		return nil, nil
	}

	ds := &Dataset{}
	for _, ex := range examples {
		ds.Rows = append(ds.Rows, features.FromExample(ex))
		ds.Labels = append(ds.Labels, ex.IsFraud)
	}
	return ds, nil
}

// SyntheticSource generates data and never declines. It terminates
// every source chain.
type SyntheticSource struct {
	Samples int
}

func (s SyntheticSource) Name() string { return "synthetic" }

func (s SyntheticSource) Load(ctx context.Context) (*Dataset, error) {
	return GenerateSynthetic(s.Samples), nil
}

// loadFromSources walks the chain and returns the first non-empty
// dataset with the winning source's name.
func loadFromSources(ctx context.Context, sources []DataSource) (*Dataset, string, error) {
	for _, src := range sources {
		ds, err := src.Load(ctx)
		if err != nil {
			return nil, src.Name(), err
		}
		if ds.Len() > 0 {
			return ds, src.Name(), nil
		}
	}
	return nil, "", fmt.Errorf("%w: no data source produced examples", ErrBadDataset)
}
