package dice

import (
	"math"
	"strconv"
	"strings"
)

// DefaultMaxDice bounds the number of dice a single Dice operation may roll.
const DefaultMaxDice = 1000

// Evaluator runs postfix dice expressions. It holds no per-call state and
// may be shared between goroutines as long as its Source is.
type Evaluator struct {
	src     Source
	maxDice int64
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithMaxDice limits how many dice one Dice operation may roll.
// Zero or a negative value removes the limit.
func WithMaxDice(n int64) Option {
	return func(e *Evaluator) {
		e.maxDice = n
	}
}

// NewEvaluator returns an Evaluator drawing from src. A nil src uses the
// process-wide math/rand/v2 generator.
func NewEvaluator(src Source, opts ...Option) *Evaluator {
	if src == nil {
		src = globalSource{}
	}
	e := &Evaluator{src: src, maxDice: DefaultMaxDice}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Eval tokenizes, evaluates and renders expr.
func (e *Evaluator) Eval(expr string) (string, error) {
	postfix, err := ToPostfix(expr)
	if err != nil {
		return "", err
	}
	val, err := e.Evaluate(postfix)
	if err != nil {
		return "", err
	}
	return Render(val), nil
}

// Evaluate reduces a postfix token sequence to a single value.
func (e *Evaluator) Evaluate(postfix []Token) (Token, error) {
	stack := make([]Token, 0, len(postfix))

	for _, tok := range postfix {
		switch t := tok.(type) {
		case Integer, Float, RollValue:
			stack = append(stack, t)
		case OperatorToken:
			var err error
			stack, err = e.apply(stack, t.Op)
			if err != nil {
				return nil, err
			}
		default:
			return nil, newError(NotAnOperand, "unexpected token %v", tok)
		}
	}

	if len(stack) != 1 {
		return nil, newError(MalformedExpression, "expression reduced to %d values, want 1", len(stack))
	}
	return stack[0], nil
}

// apply pops the operands of op and pushes its result. A Dice operator with
// only its side count available rolls a single die.
func (e *Evaluator) apply(stack []Token, op Operator) ([]Token, error) {
	if op.IsParen() {
		return nil, newError(NotAnOperator, "unmatched %q", op.String())
	}

	var lhs, rhs Token
	switch n := len(stack); {
	case n >= 2:
		lhs, rhs = stack[n-2], stack[n-1]
		stack = stack[:n-2]
	case n == 1 && op == OpDice:
		lhs, rhs = Integer(1), stack[0]
		stack = stack[:0]
	default:
		return nil, newError(InsufficientOperands, "%q needs two operands", op.String())
	}

	var (
		result Token
		err    error
	)
	switch op {
	case OpDice:
		result, err = e.roll(lhs, rhs)
	case OpKeepHighest, OpKeepLowest:
		result, err = keep(op, lhs, rhs)
	case OpAdd, OpSub, OpMul, OpDiv:
		result, err = arithmetic(op, lhs, rhs)
	default:
		err = newError(NotAnOperator, "unknown operator %d", int(op))
	}
	if err != nil {
		return nil, err
	}
	return append(stack, result), nil
}

func (e *Evaluator) roll(lhs, rhs Token) (Token, error) {
	count, err := toInteger(lhs)
	if err != nil {
		return nil, err
	}
	sides, err := toInteger(rhs)
	if err != nil {
		return nil, err
	}
	if count <= 0 || sides <= 0 {
		return nil, newError(InvalidRollParameters, "cannot roll %d dice with %d sides", count, sides)
	}
	if e.maxDice > 0 && count > e.maxDice {
		return nil, newError(InvalidRollParameters, "cannot roll more than %d dice at once", e.maxDice)
	}
	if sides > math.MaxInt64/count {
		return nil, newError(InvalidRollParameters, "%dd%d overflows", count, sides)
	}

	r := &Roll{Results: make([]int64, count)}
	for i := range r.Results {
		v := e.src.Int64N(sides) + 1
		r.Results[i] = v
		r.Total += v
	}
	return RollValue{Roll: r}, nil
}

// keep collapses a roll to the total of its n highest or lowest dice.
func keep(op Operator, lhs, rhs Token) (Token, error) {
	rv, ok := lhs.(RollValue)
	if !ok || rv.Roll == nil {
		return nil, newError(NotAnOperand, "%q applies to a dice roll, not %v", op.String(), lhs)
	}
	n, err := toInteger(rhs)
	if err != nil {
		return nil, err
	}
	if n < 0 || n > math.MaxInt32 {
		return nil, newError(InvalidRollParameters, "cannot keep %d dice", n)
	}
	kept := rv.Roll.Keep(int(n), op == OpKeepHighest)
	return Integer(kept.Total), nil
}

// number is an arithmetic operand after coercion.
type number struct {
	i       int64
	f       float64
	isFloat bool
}

func (n number) float() float64 {
	if n.isFloat {
		return n.f
	}
	return float64(n.i)
}

func toNumber(t Token) (number, error) {
	switch v := t.(type) {
	case Integer:
		return number{i: int64(v)}, nil
	case Float:
		return number{f: float64(v), isFloat: true}, nil
	case RollValue:
		if v.Roll == nil {
			return number{}, nil
		}
		return number{i: v.Roll.Total}, nil
	default:
		return number{}, newError(NotAnOperand, "%v is not a number", t)
	}
}

// arithmetic applies + - * /. A float operand makes the result a float;
// division is always true division.
func arithmetic(op Operator, lhs, rhs Token) (Token, error) {
	l, err := toNumber(lhs)
	if err != nil {
		return nil, err
	}
	r, err := toNumber(rhs)
	if err != nil {
		return nil, err
	}

	if op == OpDiv || l.isFloat || r.isFloat {
		a, b := l.float(), r.float()
		switch op {
		case OpAdd:
			return Float(a + b), nil
		case OpSub:
			return Float(a - b), nil
		case OpMul:
			return Float(a * b), nil
		default:
			return Float(a / b), nil
		}
	}

	var (
		v  int64
		ok bool
	)
	switch op {
	case OpAdd:
		v, ok = addInt64(l.i, r.i)
	case OpSub:
		v, ok = subInt64(l.i, r.i)
	default:
		v, ok = mulInt64(l.i, r.i)
	}
	if !ok {
		return nil, newError(InvalidRollParameters, "%d %s %d overflows", l.i, op.String(), r.i)
	}
	return Integer(v), nil
}

func addInt64(a, b int64) (int64, bool) {
	s := a + b
	if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func subInt64(a, b int64) (int64, bool) {
	s := a - b
	if (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0) {
		return 0, false
	}
	return s, true
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

// toInteger coerces a dice or keep count. Floats truncate toward zero.
func toInteger(t Token) (int64, error) {
	n, err := toNumber(t)
	if err != nil || !n.isFloat {
		return n.i, err
	}
	f := math.Trunc(n.f)
	if math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, newError(InvalidRollParameters, "%v is not a usable count", t)
	}
	return int64(f), nil
}

// Render formats a final value for display. Rolls render as their total.
func Render(t Token) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// formatFloat renders the shortest decimal that round-trips, always with a
// decimal point for finite values so 5.0 never reads as an integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
