package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Artifact bundles the fitted scaler and classifier state with the
// feature-name contract they were trained against. It is the unit the
// repository stores as a versioned binary blob.
type Artifact struct {
	Version      string
	FeatureNames []string
	Scaler       *Scaler
	Classifier   *Logistic
}

// DefaultArtifact returns the lazy fallback used when no trained model
// is available: an identity scaler and a zero-weight classifier that
// scores every transaction 0.5.
func DefaultArtifact(featureNames []string) *Artifact {
	return &Artifact{
		Version:      "v0.untrained",
		FeatureNames: append([]string(nil), featureNames...),
		Scaler:       NewScaler(),
		Classifier:   NewLogistic(len(featureNames)),
	}
}

// Encode serializes the artifact to its binary blob form.
func (a *Artifact) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(a); err != nil {
		return nil, fmt.Errorf("failed to encode model artifact: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes an artifact blob.
func Decode(blob []byte) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if a.Scaler == nil || a.Classifier == nil {
		return nil, fmt.Errorf("model artifact %s is incomplete", a.Version)
	}
	return &a, nil
}
