package domain

import "time"

// FraudModel is the metadata row for a trained model artifact. The
// fitted scaler and classifier state live in Blob; Version names the
// artifact and FeatureNames pins the column contract it was trained
// against.
//
// Invariant: at most one FraudModel is active at any time. Activation
// is a single transition that deactivates all others.
type FraudModel struct {
	Version      string    `json:"version"`
	FeatureNames []string  `json:"featureNames"`
	Blob         []byte    `json:"-"`
	Accuracy     float64   `json:"accuracy"`
	Precision    float64   `json:"precision"`
	Recall       float64   `json:"recall"`
	F1           float64   `json:"f1"`
	AUC          float64   `json:"auc"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Prediction is the scorer output for a single transaction.
type Prediction struct {
	FraudScore   float64  `json:"fraud_score"`
	IsFraud      bool     `json:"is_fraud"`
	Confidence   float64  `json:"confidence"`
	RiskFactors  []string `json:"risk_factors"`
	ModelVersion string   `json:"model_version"`
}

// ScoreRequest is the payload for the scoring boundary.
type ScoreRequest struct {
	TransactionID string  `json:"transaction_id"`
	SenderID      string  `json:"sender_id"`
	Amount        float64 `json:"amount"`
	CreatedAt     string  `json:"created_at"` // ISO-8601
}

// TrainingResult summarizes a completed training run.
type TrainingResult struct {
	Version   string  `json:"version"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	AUC       float64 `json:"auc"`
	Samples   int     `json:"samples"`
	Source    string  `json:"source"`
}
