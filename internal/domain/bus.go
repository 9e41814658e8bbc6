package domain

import (
	"context"
)

// EventBus defines the interface for event-driven notifications.
// Alerts are fire-and-forget: a publish failure never rolls back the
// transaction that triggered it.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the scoring pipeline.
const (
	TopicTransactionScored = "kestrel.transaction.scored"
	TopicStatusCorrected   = "kestrel.transaction.status_corrected"
	TopicModelActivated    = "kestrel.model.activated"
	TopicFraudAlert        = "kestrel.fraud.alert"
)

// FraudAlert is the payload published on TopicFraudAlert.
type FraudAlert struct {
	TransactionID string   `json:"transactionId"`
	SenderID      string   `json:"senderId"`
	Amount        float64  `json:"amount"`
	FraudScore    float64  `json:"fraudScore"`
	RiskFactors   []string `json:"riskFactors"`
	ModelVersion  string   `json:"modelVersion"`
}
