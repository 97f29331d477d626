package dice

import (
	"slices"
	"strconv"
)

// Token is one element of a postfix dice expression. The set of
// implementations is closed: Integer, Float, OperatorToken and RollValue.
type Token interface {
	String() string
	isToken()
}

// Integer is an integer literal or an integer intermediate result.
type Integer int64

// Float is a floating point literal or intermediate result.
type Float float64

// OperatorToken carries an operator through the postfix sequence.
type OperatorToken struct {
	Op Operator
}

// RollValue is the outcome of a Dice operation sitting on the value stack.
type RollValue struct {
	Roll *Roll
}

func (Integer) isToken()       {}
func (Float) isToken()         {}
func (OperatorToken) isToken() {}
func (RollValue) isToken()     {}

func (i Integer) String() string       { return strconv.FormatInt(int64(i), 10) }
func (f Float) String() string         { return formatFloat(float64(f)) }
func (o OperatorToken) String() string { return o.Op.String() }

func (r RollValue) String() string {
	if r.Roll == nil {
		return "0"
	}
	return strconv.FormatInt(r.Roll.Total, 10)
}

// Roll is the outcome of rolling a number of identical dice.
// Total is always the sum of Results.
type Roll struct {
	Total   int64   `json:"total"`
	Results []int64 `json:"results"`
}

// Keep returns a new Roll holding only the n highest (or lowest) results.
// The receiver is left untouched. Ties are broken by a stable sort, so which
// of several equal dice is dropped is implementation-defined but repeatable.
func (r *Roll) Keep(n int, highest bool) *Roll {
	kept := slices.Clone(r.Results)
	slices.SortStableFunc(kept, func(a, b int64) int {
		if highest {
			return compareInt64(b, a)
		}
		return compareInt64(a, b)
	})

	total := r.Total
	for len(kept) > n {
		last := kept[len(kept)-1]
		total -= last
		kept = kept[:len(kept)-1]
	}
	return &Roll{Total: total, Results: kept}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
