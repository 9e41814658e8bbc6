package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kestrelhq/kestrel/internal/domain"
)

// RemoteScorer calls the scoring boundary of a separate scoring service
// over HTTP. It implements Scorer for multi-service deployments; the
// in-process scorer is the default. A non-success response or timeout
// surfaces as an error, which the pipeline treats as a scoring failure.
type RemoteScorer struct {
	BaseURL string
	Client  *http.Client
}

// NewRemoteScorer creates a remote scorer with a bounded request
// timeout.
func NewRemoteScorer(baseURL string, timeout time.Duration) *RemoteScorer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteScorer{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// ScoreTransaction posts the transaction to the remote /score endpoint.
// The raw feature vector is not available across the wire; callers get
// nil and skip feature persistence.
func (r *RemoteScorer) ScoreTransaction(ctx context.Context, tx *domain.Transaction) (*domain.Prediction, []float64, error) {
	body, err := json.Marshal(domain.ScoreRequest{
		TransactionID: tx.ID,
		SenderID:      tx.SenderID,
		Amount:        tx.Amount,
		CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("scoring call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("scoring call returned status %d", resp.StatusCode)
	}

	var pred domain.Prediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}
	return &pred, nil, nil
}
