package model

import "sort"

// Metrics holds held-out evaluation results for a trained model.
type Metrics struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	AUC       float64
}

// Evaluate computes classification metrics from 0/1 labels, 0/1
// predictions, and positive-class probabilities. Precision and recall
// degrade to 0 when the relevant class is absent; they never error.
func Evaluate(labels, preds []int, probs []float64) Metrics {
	var tp, fp, tn, fn float64
	for i, y := range labels {
		switch {
		case preds[i] == 1 && y == 1:
			tp++
		case preds[i] == 1 && y == 0:
			fp++
		case preds[i] == 0 && y == 0:
			tn++
		default:
			fn++
		}
	}

	var m Metrics
	total := tp + fp + tn + fn
	if total > 0 {
		m.Accuracy = (tp + tn) / total
	}
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.AUC = auc(labels, probs)
	return m
}

// auc is the rank-based (Mann-Whitney) area under the ROC curve. Ties
// contribute half. Returns 0.5 when either class is absent.
func auc(labels []int, probs []float64) float64 {
	type pair struct {
		p float64
		y int
	}
	pairs := make([]pair, len(labels))
	var pos, neg float64
	for i, y := range labels {
		pairs[i] = pair{probs[i], y}
		if y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	// Assign average ranks, handling ties in probability.
	ranks := make([]float64, len(pairs))
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].p == pairs[i].p {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[k] = avg
		}
		i = j
	}

	var rankSum float64
	for i, pr := range pairs {
		if pr.y == 1 {
			rankSum += ranks[i]
		}
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}
