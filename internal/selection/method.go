package selection

import (
	"fmt"
	"strings"
)

// Method selects the scoring criterion.
type Method int

const (
	// Variance ranks features by sample variance regardless of label.
	Variance Method = iota
	// ChiSquare ranks features by the chi-square statistic against the labels.
	ChiSquare
	// MutualInformation ranks features by mutual information with the labels.
	MutualInformation
	// Fisher ranks features by mean pairwise Fisher score over target classes.
	Fisher
)

var methodNames = map[Method]string{
	Variance:          "variance",
	ChiSquare:         "chi-square",
	MutualInformation: "mutual-info",
	Fisher:            "fisher",
}

// String returns the configuration name of m.
func (m Method) String() string {
	if s, ok := methodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a configuration name into a Method.
// Accepted names: variance, chi-square (chi2), mutual-info (mi), fisher.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "variance", "var":
		return Variance, nil
	case "chi-square", "chi2", "chisquare":
		return ChiSquare, nil
	case "mutual-info", "mi", "mutual-information":
		return MutualInformation, nil
	case "fisher":
		return Fisher, nil
	}
	return 0, fmt.Errorf("%w: unknown method %q", ErrInvalidParameter, s)
}

// needsLabels reports whether m uses class labels.
func (m Method) needsLabels() bool {
	return m != Variance
}
