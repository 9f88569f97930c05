package recognizer

import (
	"fmt"
	"strconv"
)

// Alphabet maps class labels to printable symbols.
type Alphabet struct {
	Name    string
	symbols []rune
}

// ParseAlphabet resolves "digits" (0-9), "letters" (A-Z) or treats spec as a
// literal symbol list, one rune per class. It must cover numClasses labels.
func ParseAlphabet(spec string, numClasses int) (Alphabet, error) {
	var a Alphabet
	switch spec {
	case "digits", "":
		a = Alphabet{Name: "digits", symbols: []rune("0123456789")}
	case "letters":
		a = Alphabet{Name: "letters", symbols: []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ")}
	default:
		a = Alphabet{Name: "custom", symbols: []rune(spec)}
	}
	if len(a.symbols) < numClasses {
		return Alphabet{}, fmt.Errorf("alphabet %s has %d symbols for %d classes", a.Name, len(a.symbols), numClasses)
	}
	return a, nil
}

// Symbol returns the symbol of label l, or its number when the alphabet is
// too short.
func (a Alphabet) Symbol(l uint8) string {
	if int(l) < len(a.symbols) {
		return string(a.symbols[l])
	}
	return strconv.Itoa(int(l))
}

// Label returns the class of symbol s.
func (a Alphabet) Label(s string) (uint8, bool) {
	r := []rune(s)
	if len(r) != 1 {
		return 0, false
	}
	for i, sym := range a.symbols {
		if sym == r[0] {
			return uint8(i), true
		}
	}
	return 0, false
}

// Symbols returns the first n symbols as one string, for OCR whitelists.
func (a Alphabet) Symbols(n int) string {
	return string(a.symbols[:min(n, len(a.symbols))])
}
