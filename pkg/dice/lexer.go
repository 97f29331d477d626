package dice

import (
	"errors"
	"strconv"
	"unicode/utf8"
)

// lexer scans a dice expression one byte at a time.
type lexer struct {
	input string
	pos   int // index of the byte under examination
}

func (l *lexer) eof() bool { return l.pos >= len(l.input) }

func (l *lexer) ch() byte { return l.input[l.pos] }

func (l *lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

// readNumber consumes digits and at most one decimal point.
// A second dot terminates the literal and is left unread.
func (l *lexer) readNumber() (Token, error) {
	start := l.pos
	seenDot := false
	for !l.eof() {
		c := l.ch()
		if isDigit(c) {
			l.pos++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			l.pos++
			continue
		}
		break
	}

	text := l.input[start:l.pos]
	if seenDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, newError(InvalidToken, "bad number %q", text)
		}
		return Float(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return nil, newError(InvalidRollParameters, "integer %q out of range", text)
	}
	if err != nil {
		return nil, newError(InvalidToken, "bad number %q", text)
	}
	return Integer(i), nil
}

// readKeep consumes a "kh" or "kl" operator.
func (l *lexer) readKeep() (Operator, error) {
	var op Operator
	switch l.peekChar() {
	case 'h':
		op = OpKeepHighest
	case 'l':
		op = OpKeepLowest
	default:
		return 0, newError(InvalidToken, "%q must be followed by 'h' or 'l' at position %d", 'k', l.pos)
	}
	l.pos += 2
	return op, nil
}

func (l *lexer) invalidChar() error {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return newError(InvalidToken, "unexpected %q at position %d", r, l.pos)
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

// converter is the shunting-yard state: the postfix output built so far and
// the pending operator stack.
type converter struct {
	output []Token
	ops    []Operator
}

func (c *converter) top() (Operator, bool) {
	if len(c.ops) == 0 {
		return 0, false
	}
	return c.ops[len(c.ops)-1], true
}

func (c *converter) pop() Operator {
	op := c.ops[len(c.ops)-1]
	c.ops = c.ops[:len(c.ops)-1]
	return op
}

// operator handles a non-parenthesis operator. Every operator is
// left-associative, dice included.
func (c *converter) operator(op Operator) {
	for {
		top, ok := c.top()
		if !ok || top == OpLeftParen || top.Precedence() < op.Precedence() {
			break
		}
		c.output = append(c.output, OperatorToken{Op: c.pop()})
	}
	c.ops = append(c.ops, op)
}

// closeParen pops back to the matching "(". An unmatched ")" pops everything
// and is otherwise ignored.
func (c *converter) closeParen() {
	for len(c.ops) > 0 {
		op := c.pop()
		if op == OpLeftParen {
			return
		}
		c.output = append(c.output, OperatorToken{Op: op})
	}
}

// flush moves all remaining operators, unmatched "(" included, to the output.
func (c *converter) flush() []Token {
	for len(c.ops) > 0 {
		c.output = append(c.output, OperatorToken{Op: c.pop()})
	}
	return c.output
}

// ToPostfix tokenizes expr and converts it to postfix order in a single
// left-to-right pass.
func ToPostfix(expr string) ([]Token, error) {
	l := &lexer{input: expr}
	c := &converter{}

	for !l.eof() {
		ch := l.ch()
		switch {
		case ch == ' ':
			l.pos++

		case isDigit(ch):
			tok, err := l.readNumber()
			if err != nil {
				return nil, err
			}
			c.output = append(c.output, tok)

		case ch == 'k':
			op, err := l.readKeep()
			if err != nil {
				return nil, err
			}
			c.operator(op)

		default:
			op, ok := symbolOperators[ch]
			if !ok {
				return nil, l.invalidChar()
			}
			l.pos++
			switch op {
			case OpLeftParen:
				c.ops = append(c.ops, op)
			case OpRightParen:
				c.closeParen()
			default:
				c.operator(op)
			}
		}
	}

	return c.flush(), nil
}
