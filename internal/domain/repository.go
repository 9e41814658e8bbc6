// Package domain defines the core types and interfaces for Kestrel.
package domain

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared across storage implementations.
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoModel      = errors.New("no active model")
)

// SenderProfile summarizes a sender's transaction history. It feeds the
// feature extractor and the risk-factor rules.
type SenderProfile struct {
	SenderID         string  `json:"senderId"`
	AvgAmount        float64 `json:"avgAmount"`
	TransactionCount int64   `json:"transactionCount"`
	// Frequency is transactions per day since the sender's first
	// transaction.
	Frequency float64 `json:"frequency"`
}

// TrainingExample is one labeled feature row persisted for retraining.
type TrainingExample struct {
	Amount          float64 `json:"amount"`
	HourOfDay       float64 `json:"hour_of_day"`
	DayOfWeek       float64 `json:"day_of_week"`
	IsWeekend       float64 `json:"is_weekend"`
	SenderAvgAmount float64 `json:"sender_avg_amount"`
	SenderTxCount   float64 `json:"sender_transaction_count"`
	SenderFrequency float64 `json:"sender_transaction_frequency"`
	AmountDeviation float64 `json:"amount_deviation"`
	IsFraud         int     `json:"is_fraud"`
}

// Repository defines the interface for data persistence.
type Repository interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	UpdateTransactionScore(ctx context.Context, txID string, score float64, status Status) error
	UpdateTransactionStatus(ctx context.Context, txID string, status Status) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	SenderSummary(ctx context.Context, senderID string, before time.Time) (*SenderProfile, error)

	// Daily statistics. Increment and Adjust are atomic at the row
	// level so concurrent writers on the same date never lose updates.
	IncrementDailyStat(ctx context.Context, date time.Time, status Status, amount float64) error
	AdjustDailyStat(ctx context.Context, date time.Time, from, to Status) error
	GetDailyStat(ctx context.Context, date time.Time) (*DailyStat, error)
	ListDailyStats(ctx context.Context, start, end time.Time) ([]*DailyStat, error)

	// Model artifacts
	SaveModel(ctx context.Context, model *FraudModel) error
	ActivateModel(ctx context.Context, version string) error
	GetActiveModel(ctx context.Context) (*FraudModel, error)
	ListModels(ctx context.Context) ([]*FraudModel, error)

	// Labeled feature rows for retraining
	SaveTrainingExample(ctx context.Context, ex *TrainingExample) error
	ListTrainingExamples(ctx context.Context) ([]*TrainingExample, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
