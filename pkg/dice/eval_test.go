package dice

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// scriptedSource returns pre-set die faces in order, cycling when exhausted.
type scriptedSource struct {
	mu    sync.Mutex
	faces []int64
	next  int
}

func (s *scriptedSource) Int64N(n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	face := s.faces[s.next%len(s.faces)]
	s.next++
	return (face - 1) % n
}

func scripted(faces ...int64) *scriptedSource {
	return &scriptedSource{faces: faces}
}

func TestEval_Arithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"5", "5"},
		{"5.0", "5.0"},
		{"2+3*4", "14"},
		{"(2+3)*4", "20"},
		{"10-4-3", "3"},
		{"2*3-4", "2"},
		{"8/2", "4.0"},
		{"1/2", "0.5"},
		{"2*1.5", "3.0"},
		{"2.5+2.5", "5.0"},
		{"7-10", "-3"},
		{"2)+3", "5"},
	}

	e := NewEvaluator(scripted(1))
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Eval(tt.expr)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_TrueDivision(t *testing.T) {
	got, err := NewEvaluator(nil).Eval("1/3")
	if err != nil {
		t.Fatalf("Eval error = %v", err)
	}
	if !strings.HasPrefix(got, "0.333") {
		t.Errorf("Eval(1/3) = %q, want 0.333...", got)
	}
}

func TestEval_Dice(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		faces []int64
		want  string
	}{
		{"sum of dice", "3d6", []int64{1, 2, 3}, "6"},
		{"implicit single die", "d6", []int64{4}, "4"},
		{"dice plus modifier", "2d6+1", []int64{2, 3}, "6"},
		{"keep highest", "4d6kh3", []int64{3, 6, 1, 5}, "14"},
		{"keep lowest", "4d6kl3", []int64{3, 6, 1, 5}, "9"},
		{"keep then multiply", "4d6kh3*2", []int64{3, 6, 1, 5}, "28"},
		{"keep more than rolled", "4d6kh5", []int64{3, 6, 1, 5}, "15"},
		{"keep none", "4d6kh0", []int64{3, 6, 1, 5}, "0"},
		{"roll as count", "(1d4)d6", []int64{2, 5, 6}, "11"},
		{"float count truncates", "1.9d6", []int64{4}, "4"},
		{"roll divided", "2d6/2", []int64{3, 4}, "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEvaluator(scripted(tt.faces...)).Eval(tt.expr)
			if err != nil {
				t.Fatalf("Eval(%q) error = %v", tt.expr, err)
			}
			if got != tt.want {
				t.Errorf("Eval(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		expr string
		want *Error
	}{
		{"", ErrMalformedExpression},
		{"   ", ErrMalformedExpression},
		{"2 3", ErrMalformedExpression},
		{"+", ErrInsufficientOperands},
		{"2+", ErrInsufficientOperands},
		{"-3", ErrInsufficientOperands},
		{"2+d6", ErrInsufficientOperands},
		{"k9", ErrInvalidToken},
		{"2x", ErrInvalidToken},
		{"0d6", ErrInvalidRollParameters},
		{"1d0", ErrInvalidRollParameters},
		{"(1-2)d6", ErrInvalidRollParameters},
		{"1001d6", ErrInvalidRollParameters},
		{"2d9223372036854775807", ErrInvalidRollParameters},
		{"4d6kh(0-1)", ErrInvalidRollParameters},
		{"4d6kh99999999999", ErrInvalidRollParameters},
		{"(1/0)d6", ErrInvalidRollParameters},
		{"1d(4611686018427387904*5)", ErrInvalidRollParameters},
		{"9223372036854775807+1", ErrInvalidRollParameters},
		{"(0-9223372036854775807)-2", ErrInvalidRollParameters},
		{"99999999999999999999d6", ErrInvalidRollParameters},
		{"1d99999999999999999999", ErrInvalidRollParameters},
		{"4d6kh99999999999999999999", ErrInvalidRollParameters},
		{"3kh1", ErrNotAnOperand},
		{"(2d6+1)kh1", ErrNotAnOperand},
		{"(2+3", ErrNotAnOperator},
	}

	e := NewEvaluator(scripted(1))
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.Eval(tt.expr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Eval(%q) = %q, %v; want kind %s", tt.expr, got, err, tt.want.Kind)
			}
			if got != "" {
				t.Errorf("Eval(%q) returned partial result %q", tt.expr, got)
			}
		})
	}
}

func TestEvaluate_RollBounds(t *testing.T) {
	e := NewEvaluator(NewSource(42))
	for n := 1; n <= 10; n++ {
		for m := 1; m <= 20; m++ {
			expr := fmt.Sprintf("%dd%d", n, m)
			postfix, err := ToPostfix(expr)
			if err != nil {
				t.Fatalf("ToPostfix(%q) error = %v", expr, err)
			}
			val, err := e.Evaluate(postfix)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", expr, err)
			}
			rv, ok := val.(RollValue)
			if !ok {
				t.Fatalf("Evaluate(%q) = %T, want RollValue", expr, val)
			}
			if len(rv.Roll.Results) != n {
				t.Errorf("%s: got %d results, want %d", expr, len(rv.Roll.Results), n)
			}
			var sum int64
			for _, r := range rv.Roll.Results {
				if r < 1 || r > int64(m) {
					t.Errorf("%s: die result %d out of [1, %d]", expr, r, m)
				}
				sum += r
			}
			if sum != rv.Roll.Total {
				t.Errorf("%s: total %d != sum of results %d", expr, rv.Roll.Total, sum)
			}
			if rv.Roll.Total < int64(n) || rv.Roll.Total > int64(n*m) {
				t.Errorf("%s: total %d out of [%d, %d]", expr, rv.Roll.Total, n, n*m)
			}
		}
	}
}

func TestEval_ImplicitCountMatchesExplicit(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		a, err := NewEvaluator(NewSource(seed)).Eval("d6")
		if err != nil {
			t.Fatalf("Eval(d6) error = %v", err)
		}
		b, err := NewEvaluator(NewSource(seed)).Eval("1d6")
		if err != nil {
			t.Fatalf("Eval(1d6) error = %v", err)
		}
		if a != b {
			t.Errorf("seed %d: d6 = %s, 1d6 = %s", seed, a, b)
		}
	}
}

func TestEvaluate_KeepDoesNotMutateInput(t *testing.T) {
	roll := &Roll{Total: 15, Results: []int64{3, 6, 1, 5}}
	postfix := []Token{RollValue{Roll: roll}, Integer(3), OperatorToken{Op: OpKeepHighest}}

	val, err := NewEvaluator(nil).Evaluate(postfix)
	if err != nil {
		t.Fatalf("Evaluate error = %v", err)
	}
	if val != Integer(14) {
		t.Errorf("Evaluate = %v, want 14", val)
	}
	if roll.Total != 15 || len(roll.Results) != 4 || roll.Results[0] != 3 {
		t.Errorf("input roll mutated: %+v", roll)
	}
}

func TestRoll_Keep(t *testing.T) {
	roll := &Roll{Total: 16, Results: []int64{4, 2, 6, 4}}

	high := roll.Keep(2, true)
	if high.Total != 10 || len(high.Results) != 2 {
		t.Errorf("Keep(2, highest) = %+v, want total 10 with 2 results", high)
	}

	low := roll.Keep(3, false)
	if low.Total != 10 || len(low.Results) != 3 {
		t.Errorf("Keep(3, lowest) = %+v, want total 10 with 3 results", low)
	}
	if low.Results[0] != 2 || low.Results[1] != 4 || low.Results[2] != 4 {
		t.Errorf("Keep(3, lowest) results = %v, want [2 4 4]", low.Results)
	}
}

type bogusToken struct{}

func (bogusToken) String() string { return "bogus" }
func (bogusToken) isToken()       {}

func TestEvaluate_UnknownTokenVariant(t *testing.T) {
	e := NewEvaluator(nil)

	_, err := e.Evaluate([]Token{bogusToken{}})
	if !errors.Is(err, ErrNotAnOperand) {
		t.Errorf("bare unknown token: error = %v, want NotAnOperand", err)
	}

	_, err = e.Evaluate([]Token{Integer(1), bogusToken{}, OperatorToken{Op: OpAdd}})
	if !errors.Is(err, ErrNotAnOperand) {
		t.Errorf("unknown token as operand: error = %v, want NotAnOperand", err)
	}

	_, err = e.Evaluate([]Token{Integer(1), Integer(2), OperatorToken{Op: Operator(99)}})
	if !errors.Is(err, ErrNotAnOperator) {
		t.Errorf("unknown operator: error = %v, want NotAnOperator", err)
	}
}

func TestEvaluator_WithMaxDice(t *testing.T) {
	e := NewEvaluator(scripted(1), WithMaxDice(0))
	got, err := e.Eval("2000d1")
	if err != nil {
		t.Fatalf("Eval error = %v", err)
	}
	if got != "2000" {
		t.Errorf("Eval(2000d1) = %q, want 2000", got)
	}

	e = NewEvaluator(scripted(1), WithMaxDice(3))
	if _, err := e.Eval("4d6"); !errors.Is(err, ErrInvalidRollParameters) {
		t.Errorf("Eval(4d6) with limit 3: error = %v, want InvalidRollParameters", err)
	}
}

func TestKindOf(t *testing.T) {
	_, err := NewEvaluator(nil).Eval("0d6")
	kind, ok := KindOf(fmt.Errorf("wrapped: %w", err))
	if !ok || kind != InvalidRollParameters {
		t.Errorf("KindOf = %v, %v; want InvalidRollParameters, true", kind, ok)
	}
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain error) reported an engine kind")
	}
}

func TestEval_IntegerBounds(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"9223372036854775806+1", "9223372036854775807"},
		{"(0-9223372036854775807)-1", "-9223372036854775808"},
		{"4611686018427387903*2", "9223372036854775806"},
		{"(0-1)*9223372036854775807", "-9223372036854775807"},
		{"0*9223372036854775807", "0"},
	}
	e := NewEvaluator(scripted(1))
	for _, tt := range tests {
		got, err := e.Eval(tt.expr)
		if err != nil {
			t.Errorf("Eval(%q) error = %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Eval(%q) = %q, want %q", tt.expr, got, tt.want)
		}
	}
}

func TestEval_Concurrent(t *testing.T) {
	e := NewEvaluator(NewSource(7))

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				n := i%5 + 1
				got, err := e.Eval(fmt.Sprintf("%dd1+%d*2", n, j))
				if err != nil {
					errs <- err
					return
				}
				if want := fmt.Sprint(n + j*2); got != want {
					errs <- fmt.Errorf("goroutine %d: got %s, want %s", i, got, want)
					return
				}
				if _, err := e.Eval("4d6kh3"); err != nil {
					errs <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
