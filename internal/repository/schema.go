package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    sender_id TEXT NOT NULL,
    sender_name TEXT NOT NULL,
    receiver_name TEXT NOT NULL,
    amount REAL NOT NULL,
    message TEXT,
    created_at TIMESTAMP NOT NULL,
    fraud_score REAL,
    status TEXT NOT NULL DEFAULT 'legitimate'
);

CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id);
CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions(status);
CREATE INDEX IF NOT EXISTS idx_transactions_created ON transactions(created_at);
`

// daily_stats keys on the calendar day as a YYYY-MM-DD string so both
// drivers upsert on the same value. All counter mutations are single
// row atomic updates.
const schemaDailyStats = `
CREATE TABLE IF NOT EXISTS daily_stats (
    date TEXT PRIMARY KEY,
    total_transactions INTEGER NOT NULL DEFAULT 0,
    legitimate_count INTEGER NOT NULL DEFAULT 0,
    possibly_fraudulent_count INTEGER NOT NULL DEFAULT 0,
    fraudulent_count INTEGER NOT NULL DEFAULT 0,
    total_amount REAL NOT NULL DEFAULT 0
);
`

const schemaFraudModels = `
CREATE TABLE IF NOT EXISTS fraud_models (
    version TEXT PRIMARY KEY,
    feature_names TEXT NOT NULL,
    blob BLOB NOT NULL,
    accuracy REAL NOT NULL DEFAULT 0,
    precision_score REAL NOT NULL DEFAULT 0,
    recall REAL NOT NULL DEFAULT 0,
    f1 REAL NOT NULL DEFAULT 0,
    auc REAL NOT NULL DEFAULT 0,
    active INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fraud_models_active ON fraud_models(active);
`

const schemaTrainingFeatures = `
CREATE TABLE IF NOT EXISTS training_features (
    amount REAL NOT NULL,
    hour_of_day REAL NOT NULL,
    day_of_week REAL NOT NULL,
    is_weekend REAL NOT NULL,
    sender_avg_amount REAL NOT NULL,
    sender_transaction_count REAL NOT NULL,
    sender_transaction_frequency REAL NOT NULL,
    amount_deviation REAL NOT NULL,
    is_fraud INTEGER NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaTransactions,
		schemaDailyStats,
		schemaFraudModels,
		schemaTrainingFeatures,
	}
}
