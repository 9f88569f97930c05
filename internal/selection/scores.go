package selection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/glyphrec/internal/mathx"
)

// NumDiscreteBins is the number of equal-width bins used by ChiSquare and
// MutualInformation.
const NumDiscreteBins = 8

// VarianceScore returns the unbiased sample variance of values, or 0 for
// fewer than two samples.
func VarianceScore(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	return stat.Variance(values, nil)
}

// contingency is a bin x class count table built over one feature.
type contingency struct {
	joint       []int // [bin*numClasses + class]
	binTotals   []int
	classTotals []int
	total       int
	numClasses  int
}

// discretize bins values into NumDiscreteBins equal-width bins over their
// observed range and tabulates them against labels. Labels >= numClasses are
// ignored.
func discretize(values []float64, labels []uint8, numClasses int) contingency {
	t := contingency{
		joint:       make([]int, NumDiscreteBins*numClasses),
		binTotals:   make([]int, NumDiscreteBins),
		classTotals: make([]int, numClasses),
		numClasses:  numClasses,
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	width := (hi - lo) / NumDiscreteBins
	if width <= 0 {
		width = 1
	}

	for i, v := range values {
		c := int(labels[i])
		if c >= numClasses {
			continue
		}
		b := mathx.Bin(v, lo, width, NumDiscreteBins)
		t.joint[b*numClasses+c]++
		t.binTotals[b]++
		t.classTotals[c]++
		t.total++
	}
	return t
}

// ChiSquareScore returns Σ (observed-expected)²/expected over the 8-bin x
// class table of one feature. Cells with expected count below 1e-10 are
// skipped.
func ChiSquareScore(values []float64, labels []uint8, numClasses int) float64 {
	if len(values) <= 1 || numClasses <= 0 {
		return 0
	}
	t := discretize(values, labels, numClasses)
	n := float64(t.total)

	var chi float64
	for b := 0; b < NumDiscreteBins; b++ {
		for c := 0; c < numClasses; c++ {
			expected := mathx.SafeDiv(float64(t.binTotals[b])*float64(t.classTotals[c]), n, 0)
			if expected < mathx.Epsilon {
				continue
			}
			diff := float64(t.joint[b*numClasses+c]) - expected
			chi += diff * diff / expected
		}
	}
	return chi
}

// MutualInformationScore returns Σ p(b,c) log(p(b,c) / (p(b)p(c))) in nats
// over cells with nonzero joint and marginal probabilities.
func MutualInformationScore(values []float64, labels []uint8, numClasses int) float64 {
	if len(values) <= 1 || numClasses <= 0 {
		return 0
	}
	t := discretize(values, labels, numClasses)
	n := float64(t.total)

	var mi float64
	for b := 0; b < NumDiscreteBins; b++ {
		if t.binTotals[b] == 0 {
			continue
		}
		pBin := mathx.SafeDiv(float64(t.binTotals[b]), n, 0)
		for c := 0; c < numClasses; c++ {
			joint := t.joint[b*numClasses+c]
			if joint == 0 || t.classTotals[c] == 0 {
				continue
			}
			pClass := mathx.SafeDiv(float64(t.classTotals[c]), n, 0)
			pJoint := mathx.SafeDiv(float64(joint), n, 0)
			mi += pJoint * math.Log(mathx.SafeDiv(pJoint, pBin*pClass, 0))
		}
	}
	return mi
}

// FisherScore returns (mean_a-mean_b)² / (var_a+var_b) for the samples
// labeled a and b. Sample variance is 0 for a class with fewer than two
// samples; the score is 0 when either class is absent or the pooled variance
// is below 1e-10.
func FisherScore(values []float64, labels []uint8, a, b uint8) float64 {
	var va, vb []float64
	for i, v := range values {
		switch labels[i] {
		case a:
			va = append(va, v)
		case b:
			vb = append(vb, v)
		}
	}
	if len(va) == 0 || len(vb) == 0 {
		return 0
	}

	meanA, varA := moments(va)
	meanB, varB := moments(vb)
	diff := meanA - meanB
	return mathx.SafeDiv(diff*diff, varA+varB, mathx.Epsilon)
}

// moments returns the mean and unbiased variance of values (variance 0 for a
// single value).
func moments(values []float64) (float64, float64) {
	if len(values) < 2 {
		return values[0], 0
	}
	return stat.MeanVariance(values, nil)
}

// PairwiseFisherScore averages FisherScore over every unordered pair of
// targets.
func PairwiseFisherScore(values []float64, labels []uint8, targets []uint8) float64 {
	var total float64
	var pairs int
	for i := 0; i < len(targets); i++ {
		for j := i + 1; j < len(targets); j++ {
			total += FisherScore(values, labels, targets[i], targets[j])
			pairs++
		}
	}
	return mathx.SafeDiv(total, float64(pairs), 0)
}
