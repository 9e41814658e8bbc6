// Training tool for fitting and activating a Kestrel fraud model.
//
// Usage:
//   go run cmd/train/main.go -db ./kestrel.db
//   go run cmd/train/main.go -data-file /path/to/labeled.csv
//   go run cmd/train/main.go -synthetic -samples 5000
//
// Data sources are tried in order: the CSV file (when -data-file is
// given), persisted training examples (unless -synthetic), and finally
// generated synthetic data. The first non-empty source wins.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/repository"
	"github.com/kestrelhq/kestrel/internal/rules"
	"github.com/kestrelhq/kestrel/internal/scorer"
	"github.com/kestrelhq/kestrel/internal/trainer"
)

func main() {
	dataFile := flag.String("data-file", "", "path to a labeled CSV dataset")
	synthetic := flag.Bool("synthetic", false, "skip stored examples and train on synthetic data")
	samples := flag.Int("samples", 0, "synthetic sample count (default 1000)")
	dbPath := flag.String("db", "./kestrel.db", "sqlite database path")
	minExamples := flag.Int("min-examples", 0, "minimum stored examples before the repository source is used (default 50)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: *dbPath,
	})
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	engine, err := rules.NewBuiltinEngine()
	if err != nil {
		slog.Error("failed to initialize rule engine", "error", err)
		os.Exit(1)
	}

	sc := scorer.New(repo, nil, engine, 0)

	var sources []trainer.DataSource
	if *dataFile != "" {
		sources = append(sources, trainer.CSVSource{Path: *dataFile})
	}
	if !*synthetic {
		sources = append(sources, trainer.RepositorySource{Repo: repo, MinExamples: *minExamples})
	}
	sources = append(sources, trainer.SyntheticSource{Samples: *samples})

	tr := trainer.New(repo, sc, sources...)

	result, err := tr.Train(context.Background())
	if err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Model %s trained and activated\n", result.Version)
	fmt.Printf("  Source:    %s\n", result.Source)
	fmt.Printf("  Samples:   %d\n", result.Samples)
	fmt.Printf("  Accuracy:  %.4f\n", result.Accuracy)
	fmt.Printf("  Precision: %.4f\n", result.Precision)
	fmt.Printf("  Recall:    %.4f\n", result.Recall)
	fmt.Printf("  F1:        %.4f\n", result.F1)
	fmt.Printf("  AUC:       %.4f\n", result.AUC)
}
