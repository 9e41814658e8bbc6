package domain

import (
	"fmt"
	"time"
)

// Status is the risk status assigned to a transaction.
type Status string

const (
	StatusLegitimate         Status = "legitimate"
	StatusPossiblyFraudulent Status = "possibly_fraudulent"
	StatusFraudulent         Status = "fraudulent"
)

// Classification thresholds. Lower bounds are inclusive.
// FraudulentThreshold deliberately carries the same value as the
// scorer's internal is_fraud boundary without being the same constant;
// the two can move independently.
const (
	FraudulentThreshold         = 0.7
	PossiblyFraudulentThreshold = 0.4
)

// StatusForScore maps a fraud score to a risk status.
func StatusForScore(score float64) Status {
	switch {
	case score >= FraudulentThreshold:
		return StatusFraudulent
	case score >= PossiblyFraudulentThreshold:
		return StatusPossiblyFraudulent
	default:
		return StatusLegitimate
	}
}

// ValidStatus reports whether s is one of the three risk statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusLegitimate, StatusPossiblyFraudulent, StatusFraudulent:
		return true
	}
	return false
}

// Transaction represents a monetary transfer flowing through the
// scoring pipeline.
type Transaction struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	ReceiverName string    `json:"receiverName"`
	Amount       float64   `json:"amount"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`

	// FraudScore is nil until the scoring step completes. Administrative
	// status corrections never touch it.
	FraudScore *float64 `json:"fraudScore,omitempty"`
	Status     Status   `json:"status"`
}

// TransactionRequest is the API request payload for submitting a
// transaction.
type TransactionRequest struct {
	SenderID     string  `json:"senderId"`
	SenderName   string  `json:"senderName"`
	ReceiverName string  `json:"receiverName"`
	Amount       float64 `json:"amount"`
	Message      string  `json:"message,omitempty"`
}

// Validate checks the request before any state is mutated.
func (r *TransactionRequest) Validate() error {
	if r.SenderID == "" {
		return fmt.Errorf("%w: senderId is required", ErrInvalidInput)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}

// ToTransaction converts a request to a Transaction with the
// pre-scoring defaults.
func (r *TransactionRequest) ToTransaction() *Transaction {
	return &Transaction{
		SenderID:     r.SenderID,
		SenderName:   r.SenderName,
		ReceiverName: r.ReceiverName,
		Amount:       r.Amount,
		Message:      r.Message,
		CreatedAt:    time.Now().UTC(),
		Status:       StatusLegitimate,
	}
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	Status    Status
	SenderID  string
	MinAmount *float64
	MaxAmount *float64
}
