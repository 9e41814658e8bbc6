// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

const dateLayout = "2006-01-02"

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveTransaction stores a newly submitted transaction.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", domain.ErrInvalidInput)
	}
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", domain.ErrInvalidInput)
	}

	query := `
		INSERT INTO transactions (
			id, sender_id, sender_name, receiver_name, amount, message,
			created_at, fraud_score, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tx.ID, tx.SenderID, tx.SenderName, tx.ReceiverName,
		tx.Amount, tx.Message, tx.CreatedAt,
		nullableScore(tx.FraudScore), string(tx.Status),
	)
	return err
}

// GetTransaction retrieves a transaction by ID.
func (r *SQLRepository) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	query := `
		SELECT id, sender_id, sender_name, receiver_name, amount, message,
			   created_at, fraud_score, status
		FROM transactions
		WHERE id = ?
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, r.rebind(query), txID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return tx, err
}

// UpdateTransactionScore persists the scoring verdict: fraud score and
// derived status together, in one statement.
func (r *SQLRepository) UpdateTransactionScore(ctx context.Context, txID string, score float64, status domain.Status) error {
	query := `UPDATE transactions SET fraud_score = ?, status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), score, string(status), txID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateTransactionStatus applies an administrative status correction.
// The fraud score column is deliberately not touched.
func (r *SQLRepository) UpdateTransactionStatus(ctx context.Context, txID string, status domain.Status) error {
	query := `UPDATE transactions SET status = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), string(status), txID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ListTransactions retrieves transactions matching the filter, newest
// first.
func (r *SQLRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	query := `
		SELECT id, sender_id, sender_name, receiver_name, amount, message,
			   created_at, fraud_score, status
		FROM transactions
		WHERE 1 = 1
	`
	var args []any

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.SenderID != "" {
		query += " AND sender_id = ?"
		args = append(args, filter.SenderID)
	}
	if filter.MinAmount != nil {
		query += " AND amount >= ?"
		args = append(args, *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query += " AND amount <= ?"
		args = append(args, *filter.MaxAmount)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// SenderSummary aggregates a sender's history strictly before the given
// instant, so the transaction being scored never counts toward its own
// features.
func (r *SQLRepository) SenderSummary(ctx context.Context, senderID string, before time.Time) (*domain.SenderProfile, error) {
	query := `
		SELECT COUNT(*), COALESCE(AVG(amount), 0)
		FROM transactions
		WHERE sender_id = ? AND created_at < ?
	`

	var count int64
	var avg float64
	err := r.db.QueryRowContext(ctx, r.rebind(query), senderID, before).Scan(&count, &avg)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, domain.ErrNotFound
	}

	// Aggregate expressions lose column affinity in SQLite, so the
	// first-transaction timestamp comes from a plain column select.
	firstQuery := `
		SELECT created_at FROM transactions
		WHERE sender_id = ? AND created_at < ?
		ORDER BY created_at
		LIMIT 1
	`
	var first time.Time
	if err := r.db.QueryRowContext(ctx, r.rebind(firstQuery), senderID, before).Scan(&first); err != nil {
		return nil, err
	}

	days := before.Sub(first).Hours() / 24
	if days < 1 {
		days = 1
	}

	return &domain.SenderProfile{
		SenderID:         senderID,
		AvgAmount:        avg,
		TransactionCount: count,
		Frequency:        float64(count) / days,
	}, nil
}

// IncrementDailyStat applies one new transaction to its day's row in a
// single atomic upsert. Concurrent writers on the same date both land.
func (r *SQLRepository) IncrementDailyStat(ctx context.Context, date time.Time, status domain.Status, amount float64) error {
	col, err := statusColumn(status)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_stats (
			date, total_transactions, %s, total_amount
		) VALUES (?, 1, 1, ?)
		ON CONFLICT(date) DO UPDATE SET
			total_transactions = daily_stats.total_transactions + 1,
			%s = daily_stats.%s + 1,
			total_amount = daily_stats.total_amount + excluded.total_amount
	`, col, col, col)

	_, err = r.db.ExecContext(ctx, r.rebind(query), date.Format(dateLayout), amount)
	return err
}

// AdjustDailyStat rebalances status counters after a correction:
// decrement the previous status (floored at zero), increment the new
// one. Total and amount stay as they are; the transaction already
// counted toward its day.
func (r *SQLRepository) AdjustDailyStat(ctx context.Context, date time.Time, from, to domain.Status) error {
	fromCol, err := statusColumn(from)
	if err != nil {
		return err
	}
	toCol, err := statusColumn(to)
	if err != nil {
		return err
	}
	if fromCol == toCol {
		return nil
	}

	// Ensure the row exists; a correction on a day with no stats row
	// still needs somewhere to land.
	ensure := `
		INSERT INTO daily_stats (date) VALUES (?)
		ON CONFLICT(date) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, r.rebind(ensure), date.Format(dateLayout)); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE daily_stats SET
			%s = CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END,
			%s = %s + 1
		WHERE date = ?
	`, fromCol, fromCol, fromCol, toCol, toCol)

	_, err = r.db.ExecContext(ctx, r.rebind(query), date.Format(dateLayout))
	return err
}

// GetDailyStat retrieves the stats row for one calendar day.
func (r *SQLRepository) GetDailyStat(ctx context.Context, date time.Time) (*domain.DailyStat, error) {
	query := `
		SELECT date, total_transactions, legitimate_count,
			   possibly_fraudulent_count, fraudulent_count, total_amount
		FROM daily_stats
		WHERE date = ?
	`

	stat, err := scanDailyStat(r.db.QueryRowContext(ctx, r.rebind(query), date.Format(dateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return stat, err
}

// ListDailyStats retrieves stats rows in the inclusive date range.
func (r *SQLRepository) ListDailyStats(ctx context.Context, start, end time.Time) ([]*domain.DailyStat, error) {
	query := `
		SELECT date, total_transactions, legitimate_count,
			   possibly_fraudulent_count, fraudulent_count, total_amount
		FROM daily_stats
		WHERE date >= ? AND date <= ?
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*domain.DailyStat
	for rows.Next() {
		stat, err := scanDailyStat(rows)
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

// SaveModel stores a model artifact. New artifacts are inactive;
// ActivateModel flips the flag.
func (r *SQLRepository) SaveModel(ctx context.Context, model *domain.FraudModel) error {
	if model.Version == "" {
		return fmt.Errorf("%w: model version is required", domain.ErrInvalidInput)
	}

	names, _ := json.Marshal(model.FeatureNames)

	query := `
		INSERT INTO fraud_models (
			version, feature_names, blob, accuracy, precision_score,
			recall, f1, auc, active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		model.Version, string(names), model.Blob,
		model.Accuracy, model.Precision, model.Recall, model.F1, model.AUC,
		model.CreatedAt,
	)
	return err
}

// ActivateModel flips the active flag to the named version in one
// transaction: all models are deactivated, then exactly one activated.
// A reader never observes zero or two active models.
func (r *SQLRepository) ActivateModel(ctx context.Context, version string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE fraud_models SET active = 0`); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, r.rebind(`UPDATE fraud_models SET active = 1 WHERE version = ?`), version)
	if err != nil {
		return err
	}
	if err := requireRow(result); err != nil {
		return fmt.Errorf("model %s: %w", version, err)
	}

	return tx.Commit()
}

// GetActiveModel retrieves the single active model artifact.
func (r *SQLRepository) GetActiveModel(ctx context.Context) (*domain.FraudModel, error) {
	query := `
		SELECT version, feature_names, blob, accuracy, precision_score,
			   recall, f1, auc, active, created_at
		FROM fraud_models
		WHERE active = 1
		LIMIT 1
	`

	model, err := scanModel(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return model, err
}

// ListModels retrieves all model artifacts, newest first.
func (r *SQLRepository) ListModels(ctx context.Context) ([]*domain.FraudModel, error) {
	query := `
		SELECT version, feature_names, blob, accuracy, precision_score,
			   recall, f1, auc, active, created_at
		FROM fraud_models
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []*domain.FraudModel
	for rows.Next() {
		model, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}

	return models, rows.Err()
}

// SaveTrainingExample stores one labeled feature row.
func (r *SQLRepository) SaveTrainingExample(ctx context.Context, ex *domain.TrainingExample) error {
	query := `
		INSERT INTO training_features (
			amount, hour_of_day, day_of_week, is_weekend,
			sender_avg_amount, sender_transaction_count,
			sender_transaction_frequency, amount_deviation, is_fraud
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ex.Amount, ex.HourOfDay, ex.DayOfWeek, ex.IsWeekend,
		ex.SenderAvgAmount, ex.SenderTxCount, ex.SenderFrequency,
		ex.AmountDeviation, ex.IsFraud,
	)
	return err
}

// ListTrainingExamples retrieves all labeled feature rows.
func (r *SQLRepository) ListTrainingExamples(ctx context.Context) ([]*domain.TrainingExample, error) {
	query := `
		SELECT amount, hour_of_day, day_of_week, is_weekend,
			   sender_avg_amount, sender_transaction_count,
			   sender_transaction_frequency, amount_deviation, is_fraud
		FROM training_features
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var examples []*domain.TrainingExample
	for rows.Next() {
		var ex domain.TrainingExample
		if err := rows.Scan(
			&ex.Amount, &ex.HourOfDay, &ex.DayOfWeek, &ex.IsWeekend,
			&ex.SenderAvgAmount, &ex.SenderTxCount, &ex.SenderFrequency,
			&ex.AmountDeviation, &ex.IsFraud,
		); err != nil {
			return nil, err
		}
		examples = append(examples, &ex)
	}

	return examples, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var score sql.NullFloat64
	var status string

	if err := s.Scan(
		&tx.ID, &tx.SenderID, &tx.SenderName, &tx.ReceiverName,
		&tx.Amount, &tx.Message, &tx.CreatedAt, &score, &status,
	); err != nil {
		return nil, err
	}

	if score.Valid {
		tx.FraudScore = &score.Float64
	}
	tx.Status = domain.Status(status)
	return &tx, nil
}

func scanDailyStat(s scanner) (*domain.DailyStat, error) {
	var stat domain.DailyStat
	var date string

	if err := s.Scan(
		&date, &stat.TotalTransactions, &stat.LegitimateCount,
		&stat.PossiblyFraudulentCount, &stat.FraudulentCount, &stat.TotalAmount,
	); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("bad date in daily_stats: %w", err)
	}
	stat.Date = parsed
	return &stat, nil
}

func scanModel(s scanner) (*domain.FraudModel, error) {
	var model domain.FraudModel
	var names string
	var active int

	if err := s.Scan(
		&model.Version, &names, &model.Blob,
		&model.Accuracy, &model.Precision, &model.Recall, &model.F1, &model.AUC,
		&active, &model.CreatedAt,
	); err != nil {
		return nil, err
	}

	model.Active = active == 1
	if err := json.Unmarshal([]byte(names), &model.FeatureNames); err != nil {
		return nil, fmt.Errorf("bad feature names for model %s: %w", model.Version, err)
	}
	return &model, nil
}

// statusColumn maps a status to its counter column. Column names come
// from this switch only, never from input.
func statusColumn(status domain.Status) (string, error) {
	switch status {
	case domain.StatusLegitimate:
		return "legitimate_count", nil
	case domain.StatusPossiblyFraudulent:
		return "possibly_fraudulent_count", nil
	case domain.StatusFraudulent:
		return "fraudulent_count", nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullableScore(score *float64) any {
	if score == nil {
		return nil
	}
	return *score
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
