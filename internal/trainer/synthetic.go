package trainer

import (
	"math"
	"math/rand"

	"github.com/kestrelhq/kestrel/internal/features"
)

// syntheticSeed fixes the generator so training runs on synthetic data
// are reproducible.
const syntheticSeed = 42

// GenerateSynthetic builds a labeled dataset with the characteristics
// of typical traffic: 70% legitimate rows from an established-sender
// profile, 30% fraud rows with atypical amounts, night hours, weekend
// bias, and new-sender history.
func GenerateSynthetic(samples int) *Dataset {
	if samples <= 0 {
		samples = 500
	}
	rng := rand.New(rand.NewSource(syntheticSeed))

	ds := &Dataset{}

	legit := int(float64(samples) * 0.7)
	for i := 0; i < legit; i++ {
		amount := math.Max(10, rng.NormFloat64()*50+100)
		hour := clamp(math.Round(rng.NormFloat64()*4+14), 0, 23)
		day := weightedDay(rng, []float64{0.17, 0.17, 0.17, 0.17, 0.17, 0.08, 0.07})
		avgAmount := math.Max(10, rng.NormFloat64()*20+100)
		txCount := float64(5 + rng.Intn(45))
		frequency := 0.1 + rng.Float64()*1.9

		ds.append(amount, hour, day, avgAmount, txCount, frequency, 0)
	}

	fraud := int(float64(samples) * 0.3)
	for i := 0; i < fraud; i++ {
		var amount float64
		if rng.Intn(2) == 0 {
			amount = 1 + rng.Float64()*9
		} else {
			amount = 500 + rng.Float64()*1500
		}
		hour := nightHour(rng)
		day := weightedDay(rng, []float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.25, 0.25})
		avgAmount := math.Max(1, rng.NormFloat64()*30+50)
		txCount := float64(rng.Intn(5))
		frequency := rng.Float64() * 0.1

		ds.append(amount, hour, day, avgAmount, txCount, frequency, 1)
	}

	return ds
}

func (d *Dataset) append(amount, hour, day, avgAmount, txCount, frequency float64, label int) {
	weekend := 0.0
	if day >= 5 {
		weekend = 1.0
	}

	row := make([]float64, features.Count)
	row[features.IdxAmount] = amount
	row[features.IdxHourOfDay] = hour
	row[features.IdxDayOfWeek] = day
	row[features.IdxIsWeekend] = weekend
	row[features.IdxSenderAvgAmount] = avgAmount
	row[features.IdxSenderTxCount] = txCount
	row[features.IdxSenderFrequency] = frequency
	row[features.IdxAmountDeviation] = features.AmountDeviation(amount, avgAmount)

	d.Rows = append(d.Rows, row)
	d.Labels = append(d.Labels, label)
}

// nightHour picks a random hour uniformly from the night window
// [22,24) and [0,6).
func nightHour(rng *rand.Rand) float64 {
	night := []float64{22, 23, 0, 1, 2, 3, 4, 5}
	return night[rng.Intn(len(night))]
}

// weightedDay draws a weekday 0..6 from the given probability weights.
func weightedDay(rng *rand.Rand, weights []float64) float64 {
	r := rng.Float64()
	var cum float64
	for day, w := range weights {
		cum += w
		if r < cum {
			return float64(day)
		}
	}
	return float64(len(weights) - 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
