package dice

// Operator identifies one of the fixed dice-notation operators.
type Operator int

const (
	OpDice Operator = iota
	OpKeepHighest
	OpKeepLowest
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLeftParen
	OpRightParen
)

// symbolOperators maps single-character symbols to their operator.
// The two-character keep operators are handled by the lexer.
var symbolOperators = map[byte]Operator{
	'd': OpDice,
	'+': OpAdd,
	'-': OpSub,
	'*': OpMul,
	'/': OpDiv,
	'(': OpLeftParen,
	')': OpRightParen,
}

// Precedence returns the binding strength of the operator. Higher binds
// tighter. Parentheses have no precedence and return 0.
func (o Operator) Precedence() int {
	switch o {
	case OpDice:
		return 4
	case OpKeepHighest, OpKeepLowest:
		return 3
	case OpMul, OpDiv:
		return 2
	case OpAdd, OpSub:
		return 1
	default:
		return 0
	}
}

// IsParen reports whether the operator is a grouping parenthesis.
func (o Operator) IsParen() bool {
	return o == OpLeftParen || o == OpRightParen
}

// String returns the notation the operator is written with.
func (o Operator) String() string {
	switch o {
	case OpDice:
		return "d"
	case OpKeepHighest:
		return "kh"
	case OpKeepLowest:
		return "kl"
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpLeftParen:
		return "("
	case OpRightParen:
		return ")"
	default:
		return "?"
	}
}
