package cascade

import (
	"github.com/ironsheep/glyphrec/internal/bayes"
)

// Stage names the model whose label a Decision carries.
type Stage int

const (
	// StageGeneral means the general model's label stands.
	StageGeneral Stage = iota
	// StageSpecialized means a confident specialized model decided.
	StageSpecialized
)

func (s Stage) String() string {
	if s == StageSpecialized {
		return "specialized"
	}
	return "general"
}

// MarshalText renders the stage by name in JSON output.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision is the outcome of TwoStageClassify.
type Decision struct {
	bayes.Prediction

	Stage Stage `json:"stage"`
	// GeneralLabel is the label the general model chose.
	GeneralLabel uint8 `json:"general_label"`
	// SpecializedConfidence is the binary model's confidence when it was
	// consulted, 0 otherwise.
	SpecializedConfidence float64 `json:"specialized_confidence,omitempty"`
}

// Overridden reports whether the specialized stage changed the label.
func (d Decision) Overridden() bool {
	return d.Label != d.GeneralLabel
}

// TwoStageClassify classifies features with general and, when the policy
// allows, refines the call with the specialized classifier of the top two
// classes.
//
// The general model is asked for at least two ranks so the top pair is
// always known; Ranked is cut back to topN before returning. On override
// Label and Ranked[0] become the specialized label and Confidence is the
// general probability of that label.
func (m *Manager) TwoStageClassify(general Predictor, features []float64, topN int) Decision {
	result := general.PredictWithConfidence(features, max(topN, 2))
	d := Decision{Prediction: result, Stage: StageGeneral, GeneralLabel: result.Label}

	if result.Confidence > m.policy.HighConfidence || len(result.Ranked) < 2 {
		return d.truncate(topN)
	}

	c, ok := m.Lookup(result.Ranked[0], result.Ranked[1])
	if !ok || result.Confidence >= c.Threshold || !c.Model.Trained() {
		return d.truncate(topN)
	}

	binary := c.Model.PredictWithConfidence(features, 2)
	d.SpecializedConfidence = binary.Confidence
	if binary.Confidence <= m.policy.SpecializedConfidence {
		return d.truncate(topN)
	}

	label := c.Label(binary.Label)
	d.Stage = StageSpecialized
	if label != result.Label {
		d.Ranked = promote(result.Ranked, label)
		d.Label = label
		d.Confidence = result.Probabilities[label]

		m.logger.Debug().
			Str("component", "cascade").
			Uint8("from", result.Label).
			Uint8("to", label).
			Float64("general_confidence", result.Confidence).
			Float64("specialized_confidence", binary.Confidence).
			Msg("specialized classifier overrode prediction")
	}
	return d.truncate(topN)
}

// promote returns a copy of ranked with label swapped into rank 0.
func promote(ranked []uint8, label uint8) []uint8 {
	out := make([]uint8, len(ranked))
	copy(out, ranked)
	for i, l := range out {
		if l == label {
			out[i] = out[0]
			out[0] = label
			break
		}
	}
	return out
}

func (d Decision) truncate(topN int) Decision {
	n := max(topN, 1)
	if len(d.Ranked) > n {
		d.Ranked = d.Ranked[:n:n]
	}
	return d
}
