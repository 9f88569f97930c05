package bayes

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/ironsheep/glyphrec/internal/mathx"
)

// Prediction is the outcome of one inference call.
type Prediction struct {
	// Label is the top-ranked class.
	Label uint8 `json:"label"`

	// Confidence is the posterior probability of Label.
	Confidence float64 `json:"confidence"`

	// Probabilities holds the posterior of every class; it sums to 1.
	Probabilities []float64 `json:"probabilities"`

	// Ranked lists the topN classes by descending probability, lower class
	// index first on ties. Ranked[0] == Label. Not marshaled: a []uint8
	// encodes as base64.
	Ranked []uint8 `json:"-"`
}

// LogScores returns log P(c) + Σ_f log P(bin(x_f) | c) for every class.
//
// It panics if len(features) != NumFeatures().
func (m *Model) LogScores(features []float64) []float64 {
	if len(features) != m.numFeatures {
		panic(fmt.Sprintf("bayes: feature vector has %d values, model expects %d", len(features), m.numFeatures))
	}

	scores := make([]float64, m.numClasses)
	bins := make([]int, m.numFeatures)
	for f, v := range features {
		bins[f] = m.bin(v)
	}

	for c := 0; c < m.numClasses; c++ {
		s := mathx.FloorLog(m.prior[c], probFloor)
		for f, b := range bins {
			s += mathx.FloorLog(m.likelihood[m.offset(c, f)+b], probFloor)
		}
		scores[c] = s
	}
	return scores
}

// PredictWithConfidence classifies one descriptor.
//
// topN is clamped to [1, NumClasses]. The call never fails for a vector of
// the right length; it panics otherwise, like an out-of-range slice index.
func (m *Model) PredictWithConfidence(features []float64, topN int) Prediction {
	probs := m.LogScores(features)

	// Max-subtracted softmax.
	floats.AddConst(-floats.Max(probs), probs)
	for c, s := range probs {
		probs[c] = math.Exp(s)
	}
	floats.Scale(1/floats.Sum(probs), probs)

	topN = mathx.ClampInt(topN, 1, m.numClasses)
	order := rank(probs)

	ranked := make([]uint8, topN)
	for i := range ranked {
		ranked[i] = uint8(order[i])
	}

	return Prediction{
		Label:         ranked[0],
		Confidence:    probs[order[0]],
		Probabilities: probs,
		Ranked:        ranked,
	}
}

// Predict returns the most probable class.
func (m *Model) Predict(features []float64) uint8 {
	return m.PredictWithConfidence(features, 1).Label
}

// rank orders class indices by descending probability with ascending index
// as the tie-break.
func rank(probs []float64) []int {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return probs[order[i]] > probs[order[j]]
	})
	return order
}
