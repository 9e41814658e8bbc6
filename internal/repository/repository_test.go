package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

func newTestRepository(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kestrel-repo-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetTransaction", func(t *testing.T) {
		tx := &domain.Transaction{
			ID:           "tx-001",
			SenderID:     "sender-001",
			SenderName:   "Alice",
			ReceiverName: "Bob",
			Amount:       150.50,
			Message:      "rent",
			CreatedAt:    time.Now().UTC(),
			Status:       domain.StatusLegitimate,
		}

		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}

		retrieved, err := repo.GetTransaction(ctx, tx.ID)
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}

		if retrieved.ID != tx.ID {
			t.Errorf("expected ID %s, got %s", tx.ID, retrieved.ID)
		}
		if retrieved.Amount != tx.Amount {
			t.Errorf("expected Amount %.2f, got %.2f", tx.Amount, retrieved.Amount)
		}
		if retrieved.FraudScore != nil {
			t.Errorf("expected nil fraud score on intake, got %v", *retrieved.FraudScore)
		}
		if retrieved.Status != domain.StatusLegitimate {
			t.Errorf("expected legitimate, got %s", retrieved.Status)
		}
	})

	t.Run("GetMissingTransaction", func(t *testing.T) {
		_, err := repo.GetTransaction(ctx, "no-such-tx")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RejectsInvalidTransaction", func(t *testing.T) {
		if err := repo.SaveTransaction(ctx, &domain.Transaction{Amount: 10}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing id, got %v", err)
		}
		if err := repo.SaveTransaction(ctx, &domain.Transaction{ID: "x", Amount: 0}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for zero amount, got %v", err)
		}
	})

	t.Run("UpdateScore", func(t *testing.T) {
		if err := repo.UpdateTransactionScore(ctx, "tx-001", 0.82, domain.StatusFraudulent); err != nil {
			t.Fatalf("UpdateTransactionScore failed: %v", err)
		}

		tx, err := repo.GetTransaction(ctx, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if tx.FraudScore == nil || *tx.FraudScore != 0.82 {
			t.Errorf("expected score 0.82, got %v", tx.FraudScore)
		}
		if tx.Status != domain.StatusFraudulent {
			t.Errorf("expected fraudulent, got %s", tx.Status)
		}

		if err := repo.UpdateTransactionScore(ctx, "missing", 0.1, domain.StatusLegitimate); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing tx, got %v", err)
		}
	})

	t.Run("UpdateStatusKeepsScore", func(t *testing.T) {
		if err := repo.UpdateTransactionStatus(ctx, "tx-001", domain.StatusPossiblyFraudulent); err != nil {
			t.Fatalf("UpdateTransactionStatus failed: %v", err)
		}

		tx, err := repo.GetTransaction(ctx, "tx-001")
		if err != nil {
			t.Fatalf("GetTransaction failed: %v", err)
		}
		if tx.Status != domain.StatusPossiblyFraudulent {
			t.Errorf("expected possibly_fraudulent, got %s", tx.Status)
		}
		if tx.FraudScore == nil || *tx.FraudScore != 0.82 {
			t.Errorf("expected score unchanged at 0.82, got %v", tx.FraudScore)
		}
	})
}

func TestListTransactions(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seed := []*domain.Transaction{
		{ID: "t1", SenderID: "alice", Amount: 50, CreatedAt: base, Status: domain.StatusLegitimate},
		{ID: "t2", SenderID: "alice", Amount: 500, CreatedAt: base.Add(time.Hour), Status: domain.StatusFraudulent},
		{ID: "t3", SenderID: "bob", Amount: 120, CreatedAt: base.Add(2 * time.Hour), Status: domain.StatusPossiblyFraudulent},
	}
	for _, tx := range seed {
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}

	t.Run("NoFilterNewestFirst", func(t *testing.T) {
		txs, err := repo.ListTransactions(ctx, domain.TransactionFilter{})
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 3 {
			t.Fatalf("expected 3 transactions, got %d", len(txs))
		}
		if txs[0].ID != "t3" || txs[2].ID != "t1" {
			t.Errorf("expected newest first [t3 .. t1], got [%s .. %s]", txs[0].ID, txs[2].ID)
		}
	})

	t.Run("ByStatus", func(t *testing.T) {
		txs, err := repo.ListTransactions(ctx, domain.TransactionFilter{Status: domain.StatusFraudulent})
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 1 || txs[0].ID != "t2" {
			t.Errorf("expected [t2], got %v", txs)
		}
	})

	t.Run("BySender", func(t *testing.T) {
		txs, err := repo.ListTransactions(ctx, domain.TransactionFilter{SenderID: "alice"})
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 2 {
			t.Errorf("expected 2 transactions for alice, got %d", len(txs))
		}
	})

	t.Run("ByAmountRange", func(t *testing.T) {
		min := 100.0
		max := 200.0
		txs, err := repo.ListTransactions(ctx, domain.TransactionFilter{MinAmount: &min, MaxAmount: &max})
		if err != nil {
			t.Fatalf("ListTransactions failed: %v", err)
		}
		if len(txs) != 1 || txs[0].ID != "t3" {
			t.Errorf("expected [t3], got %v", txs)
		}
	})
}

func TestSenderSummary(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	amounts := []float64{100, 200, 300}
	for i, amount := range amounts {
		tx := &domain.Transaction{
			ID:        "s-" + string(rune('a'+i)),
			SenderID:  "carol",
			Amount:    amount,
			CreatedAt: base.AddDate(0, 0, i),
			Status:    domain.StatusLegitimate,
		}
		if err := repo.SaveTransaction(ctx, tx); err != nil {
			t.Fatalf("SaveTransaction failed: %v", err)
		}
	}

	t.Run("Aggregates", func(t *testing.T) {
		before := base.AddDate(0, 0, 10)
		profile, err := repo.SenderSummary(ctx, "carol", before)
		if err != nil {
			t.Fatalf("SenderSummary failed: %v", err)
		}
		if profile.TransactionCount != 3 {
			t.Errorf("expected count 3, got %d", profile.TransactionCount)
		}
		if profile.AvgAmount != 200 {
			t.Errorf("expected avg 200, got %v", profile.AvgAmount)
		}
		// 3 transactions over the 10 days since the first one
		if profile.Frequency <= 0 || profile.Frequency > 3 {
			t.Errorf("unexpected frequency %v", profile.Frequency)
		}
	})

	t.Run("ExcludesAtAndAfterCutoff", func(t *testing.T) {
		profile, err := repo.SenderSummary(ctx, "carol", base.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("SenderSummary failed: %v", err)
		}
		if profile.TransactionCount != 1 {
			t.Errorf("expected only the first transaction counted, got %d", profile.TransactionCount)
		}
	})

	t.Run("UnknownSender", func(t *testing.T) {
		_, err := repo.SenderSummary(ctx, "nobody", time.Now().UTC())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDailyStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("IncrementCreatesRow", func(t *testing.T) {
		if err := repo.IncrementDailyStat(ctx, day, domain.StatusLegitimate, 100); err != nil {
			t.Fatalf("IncrementDailyStat failed: %v", err)
		}
		if err := repo.IncrementDailyStat(ctx, day, domain.StatusLegitimate, 40); err != nil {
			t.Fatalf("IncrementDailyStat failed: %v", err)
		}
		if err := repo.IncrementDailyStat(ctx, day, domain.StatusFraudulent, 900); err != nil {
			t.Fatalf("IncrementDailyStat failed: %v", err)
		}

		stat, err := repo.GetDailyStat(ctx, day)
		if err != nil {
			t.Fatalf("GetDailyStat failed: %v", err)
		}
		if stat.TotalTransactions != 3 {
			t.Errorf("expected total 3, got %d", stat.TotalTransactions)
		}
		if stat.LegitimateCount != 2 || stat.FraudulentCount != 1 {
			t.Errorf("unexpected counters: %+v", stat)
		}
		if stat.TotalAmount != 1040 {
			t.Errorf("expected amount 1040, got %v", stat.TotalAmount)
		}
		if !stat.Date.Equal(day) {
			t.Errorf("expected date %v, got %v", day, stat.Date)
		}
	})

	t.Run("IncrementRejectsUnknownStatus", func(t *testing.T) {
		err := repo.IncrementDailyStat(ctx, day, domain.Status("limbo"), 1)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("AdjustMovesCounter", func(t *testing.T) {
		if err := repo.AdjustDailyStat(ctx, day, domain.StatusLegitimate, domain.StatusPossiblyFraudulent); err != nil {
			t.Fatalf("AdjustDailyStat failed: %v", err)
		}

		stat, err := repo.GetDailyStat(ctx, day)
		if err != nil {
			t.Fatalf("GetDailyStat failed: %v", err)
		}
		if stat.LegitimateCount != 1 || stat.PossiblyFraudulentCount != 1 {
			t.Errorf("expected counter moved, got %+v", stat)
		}
		if stat.TotalTransactions != 3 || stat.TotalAmount != 1040 {
			t.Errorf("expected total and amount untouched, got %+v", stat)
		}
	})

	t.Run("AdjustFloorsAtZero", func(t *testing.T) {
		emptyDay := day.AddDate(0, 0, 1)
		if err := repo.AdjustDailyStat(ctx, emptyDay, domain.StatusFraudulent, domain.StatusLegitimate); err != nil {
			t.Fatalf("AdjustDailyStat failed: %v", err)
		}

		stat, err := repo.GetDailyStat(ctx, emptyDay)
		if err != nil {
			t.Fatalf("GetDailyStat failed: %v", err)
		}
		if stat.FraudulentCount != 0 {
			t.Errorf("expected fraudulent floored at 0, got %d", stat.FraudulentCount)
		}
		if stat.LegitimateCount != 1 {
			t.Errorf("expected legitimate 1, got %d", stat.LegitimateCount)
		}
	})

	t.Run("ListRange", func(t *testing.T) {
		stats, err := repo.ListDailyStats(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("ListDailyStats failed: %v", err)
		}
		if len(stats) != 2 {
			t.Errorf("expected 2 rows, got %d", len(stats))
		}
	})

	t.Run("MissingDay", func(t *testing.T) {
		_, err := repo.GetDailyStat(ctx, day.AddDate(0, 1, 0))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestModels(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	save := func(version string) {
		t.Helper()
		fm := &domain.FraudModel{
			Version:      version,
			FeatureNames: []string{"amount", "hour_of_day"},
			Blob:         []byte{1, 2, 3},
			Accuracy:     0.9,
			Precision:    0.8,
			Recall:       0.7,
			F1:           0.75,
			AUC:          0.95,
			CreatedAt:    time.Now().UTC(),
		}
		if err := repo.SaveModel(ctx, fm); err != nil {
			t.Fatalf("SaveModel failed: %v", err)
		}
	}

	t.Run("NoActiveModelInitially", func(t *testing.T) {
		_, err := repo.GetActiveModel(ctx)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveIsInactive", func(t *testing.T) {
		save("v1.a")
		_, err := repo.GetActiveModel(ctx)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected saved model to stay inactive, got %v", err)
		}
	})

	t.Run("ActivateExactlyOne", func(t *testing.T) {
		save("v1.b")

		if err := repo.ActivateModel(ctx, "v1.a"); err != nil {
			t.Fatalf("ActivateModel failed: %v", err)
		}
		if err := repo.ActivateModel(ctx, "v1.b"); err != nil {
			t.Fatalf("ActivateModel failed: %v", err)
		}

		active, err := repo.GetActiveModel(ctx)
		if err != nil {
			t.Fatalf("GetActiveModel failed: %v", err)
		}
		if active.Version != "v1.b" {
			t.Errorf("expected v1.b active, got %s", active.Version)
		}

		models, err := repo.ListModels(ctx)
		if err != nil {
			t.Fatalf("ListModels failed: %v", err)
		}
		var activeCount int
		for _, m := range models {
			if m.Active {
				activeCount++
			}
		}
		if activeCount != 1 {
			t.Errorf("expected exactly 1 active model, got %d", activeCount)
		}
	})

	t.Run("ActivateMissingVersion", func(t *testing.T) {
		err := repo.ActivateModel(ctx, "v9.none")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		// The failed activation must not deactivate the current model
		active, err := repo.GetActiveModel(ctx)
		if err != nil {
			t.Fatalf("GetActiveModel failed: %v", err)
		}
		if active.Version != "v1.b" {
			t.Errorf("expected v1.b still active, got %s", active.Version)
		}
	})

	t.Run("RoundTripsMetadata", func(t *testing.T) {
		active, err := repo.GetActiveModel(ctx)
		if err != nil {
			t.Fatalf("GetActiveModel failed: %v", err)
		}
		if len(active.FeatureNames) != 2 || active.FeatureNames[0] != "amount" {
			t.Errorf("unexpected feature names %v", active.FeatureNames)
		}
		if active.Precision != 0.8 || active.AUC != 0.95 {
			t.Errorf("unexpected metrics: %+v", active)
		}
		if string(active.Blob) != string([]byte{1, 2, 3}) {
			t.Errorf("unexpected blob %v", active.Blob)
		}
	})
}

func TestTrainingExamples(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	ex := &domain.TrainingExample{
		Amount:          1200,
		HourOfDay:       3,
		DayOfWeek:       6,
		IsWeekend:       1,
		SenderAvgAmount: 80,
		SenderTxCount:   1,
		SenderFrequency: 0.05,
		AmountDeviation: 14,
		IsFraud:         1,
	}
	if err := repo.SaveTrainingExample(ctx, ex); err != nil {
		t.Fatalf("SaveTrainingExample failed: %v", err)
	}

	examples, err := repo.ListTrainingExamples(ctx)
	if err != nil {
		t.Fatalf("ListTrainingExamples failed: %v", err)
	}
	if len(examples) != 1 {
		t.Fatalf("expected 1 example, got %d", len(examples))
	}
	if examples[0].Amount != 1200 || examples[0].IsFraud != 1 {
		t.Errorf("unexpected example %+v", examples[0])
	}
}
