package eval

import "sort"

// Confusion is one off-diagonal cell of the confusion matrix.
type Confusion struct {
	Actual    uint8 `json:"actual"`
	Predicted uint8 `json:"predicted"`
	Count     int   `json:"count"`
}

// TopConfusions returns up to n off-diagonal cells with a nonzero count,
// ordered by count descending, then actual ascending, then predicted
// ascending.
func (r *Report) TopConfusions(n int) []Confusion {
	var all []Confusion
	for a, row := range r.Confusion {
		for p, count := range row {
			if a == p || count == 0 {
				continue
			}
			all = append(all, Confusion{Actual: uint8(a), Predicted: uint8(p), Count: count})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		if all[i].Actual != all[j].Actual {
			return all[i].Actual < all[j].Actual
		}
		return all[i].Predicted < all[j].Predicted
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// PairSuggestion is an unordered class pair with its combined confusion
// count in both directions.
type PairSuggestion struct {
	A     uint8 `json:"a"`
	B     uint8 `json:"b"`
	Count int   `json:"count"`
}

// SuggestPairs returns up to n unordered pairs (A < B) ranked by
// Confusion[A][B]+Confusion[B][A] descending, then A, then B.
func (r *Report) SuggestPairs(n int) []PairSuggestion {
	var all []PairSuggestion
	for a := 0; a < r.NumClasses; a++ {
		for b := a + 1; b < r.NumClasses; b++ {
			count := r.Confusion[a][b] + r.Confusion[b][a]
			if count == 0 {
				continue
			}
			all = append(all, PairSuggestion{A: uint8(a), B: uint8(b), Count: count})
		}
	}
	// Pairs are generated in (A, B) order, so a stable sort on count alone
	// keeps the tie order.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Count > all[j].Count })
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
