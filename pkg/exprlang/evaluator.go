package exprlang

import "fmt"

// Evaluate runs an expression against a flat variable environment and
// returns the boolean outcome, or nil when the expression does not resolve
// to a boolean or any internal fault occurs (type mismatch, unknown
// function, malformed expression). It never panics and never mutates the
// environment, so a fresh call per rule is safe under concurrent case
// evaluations.
func Evaluate(expression string, variables map[string]any) *bool {
	v, err := EvaluateValue(expression, variables)
	if err != nil || v.Kind != KindBool {
		return nil
	}
	b := v.Bool
	return &b
}

// EvaluateValue is the typed form of Evaluate: it returns whatever scalar
// the expression reduces to. Ladder and trigger evaluation only accept
// booleans, but sub-expressions legitimately reduce to numbers or strings.
func EvaluateValue(expression string, variables map[string]any) (Value, error) {
	toks, err := tokenize(expression)
	if err != nil {
		return Value{}, err
	}
	ev := &evaluator{vars: variables}
	return ev.reduce(toks)
}

type evaluator struct {
	vars map[string]any
}

// reduce resolves innermost parenthesized and function groups first: it
// scans for the last unmatched '(', finds its matching ')', evaluates the
// enclosed tokens, and substitutes the scalar result back into the stream.
// Once no parentheses remain the flat stream is folded by operator
// precedence.
func (ev *evaluator) reduce(toks []token) (Value, error) {
	for {
		open := -1
		for i, t := range toks {
			if t.kind == tokLParen {
				open = i
			}
		}
		if open == -1 {
			break
		}
		close := -1
		for i := open + 1; i < len(toks); i++ {
			if toks[i].kind == tokRParen {
				close = i
				break
			}
		}
		if close == -1 {
			return Value{}, fmt.Errorf("exprlang: unbalanced parentheses")
		}
		inner := toks[open+1 : close]

		var result Value
		start := open
		if open > 0 && toks[open-1].kind == tokFunc {
			name := toks[open-1].text
			args, err := ev.evalArgs(inner)
			if err != nil {
				return Value{}, err
			}
			result, err = applyFunction(name, args)
			if err != nil {
				return Value{}, err
			}
			start = open - 1
		} else {
			v, err := ev.evalFlat(inner)
			if err != nil {
				return Value{}, err
			}
			result = v
		}

		rebuilt := make([]token, 0, len(toks)-(close-start))
		rebuilt = append(rebuilt, toks[:start]...)
		rebuilt = append(rebuilt, token{kind: tokValue, val: result})
		rebuilt = append(rebuilt, toks[close+1:]...)
		toks = rebuilt
	}
	return ev.evalFlat(toks)
}

// evalArgs splits a function argument list on commas and evaluates each
// argument independently. The group being reduced is innermost, so every
// comma present is a top-level argument separator.
func (ev *evaluator) evalArgs(toks []token) ([]Value, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	var args []Value
	begin := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && toks[i].kind != tokComma {
			continue
		}
		if i == begin {
			return nil, fmt.Errorf("exprlang: empty function argument")
		}
		v, err := ev.evalFlat(toks[begin:i])
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		begin = i + 1
	}
	return args, nil
}

// evalFlat folds a parenthesis-free token run: unary NOT first, then the
// binary comparisons, then AND, then OR, each scanned left to right.
func (ev *evaluator) evalFlat(toks []token) (Value, error) {
	toks, err := ev.foldNot(toks)
	if err != nil {
		return Value{}, err
	}
	toks, err = ev.foldCompare(toks)
	if err != nil {
		return Value{}, err
	}
	for _, connective := range []tokenKind{tokAnd, tokOr} {
		toks, err = ev.foldConnective(toks, connective)
		if err != nil {
			return Value{}, err
		}
	}
	if len(toks) != 1 {
		return Value{}, fmt.Errorf("exprlang: malformed expression (%d tokens remain)", len(toks))
	}
	return ev.resolve(toks[0])
}

// foldNot rewrites NOT <operand> pairs right to left so chained negations
// collapse innermost first.
func (ev *evaluator) foldNot(toks []token) ([]token, error) {
	for {
		idx := -1
		for i := len(toks) - 1; i >= 0; i-- {
			if toks[i].kind == tokNot {
				idx = i
				break
			}
		}
		if idx == -1 {
			return toks, nil
		}
		if idx+1 >= len(toks) {
			return nil, fmt.Errorf("exprlang: NOT without operand")
		}
		operand, err := ev.resolve(toks[idx+1])
		if err != nil {
			return nil, err
		}
		if operand.Kind != KindBool {
			return nil, fmt.Errorf("exprlang: NOT applied to %s", operand.Kind)
		}
		toks = splice(toks, idx, idx+2, Boolean(!operand.Bool))
	}
}

func (ev *evaluator) foldCompare(toks []token) ([]token, error) {
	for {
		idx := -1
		for i, t := range toks {
			if t.kind == tokCompare {
				idx = i
				break
			}
		}
		if idx == -1 {
			return toks, nil
		}
		if idx == 0 || idx+1 >= len(toks) {
			return nil, fmt.Errorf("exprlang: comparison %q missing operand", toks[idx].text)
		}
		left, err := ev.resolve(toks[idx-1])
		if err != nil {
			return nil, err
		}
		right, err := ev.resolve(toks[idx+1])
		if err != nil {
			return nil, err
		}
		v, err := compare(toks[idx].text, left, right)
		if err != nil {
			return nil, err
		}
		toks = splice(toks, idx-1, idx+2, v)
	}
}

func (ev *evaluator) foldConnective(toks []token, kind tokenKind) ([]token, error) {
	word := "AND"
	if kind == tokOr {
		word = "OR"
	}
	for {
		idx := -1
		for i, t := range toks {
			if t.kind == kind {
				idx = i
				break
			}
		}
		if idx == -1 {
			return toks, nil
		}
		if idx == 0 || idx+1 >= len(toks) {
			return nil, fmt.Errorf("exprlang: %s missing operand", word)
		}
		left, err := ev.resolve(toks[idx-1])
		if err != nil {
			return nil, err
		}
		right, err := ev.resolve(toks[idx+1])
		if err != nil {
			return nil, err
		}
		if left.Kind != KindBool || right.Kind != KindBool {
			return nil, fmt.Errorf("exprlang: %s over %s and %s", word, left.Kind, right.Kind)
		}
		var out bool
		if kind == tokAnd {
			out = left.Bool && right.Bool
		} else {
			out = left.Bool || right.Bool
		}
		toks = splice(toks, idx-1, idx+2, Boolean(out))
	}
}

// resolve turns a single token into its typed value. Identifiers missing
// from the environment resolve to null, not an error: absence of a fact is
// ordinary input, never a fault.
func (ev *evaluator) resolve(t token) (Value, error) {
	switch t.kind {
	case tokValue:
		return t.val, nil
	case tokIdent:
		raw, ok := ev.vars[t.text]
		if !ok {
			return Null(), nil
		}
		return FromAny(raw)
	}
	return Value{}, fmt.Errorf("exprlang: unexpected token in operand position")
}

// compare applies one comparison operator. Equality works across the full
// value set; ordering requires two numbers or two strings.
func compare(op string, l, r Value) (Value, error) {
	switch op {
	case "==":
		return Boolean(equals(l, r)), nil
	case "!=":
		return Boolean(!equals(l, r)), nil
	}
	switch {
	case l.Kind == KindNumber && r.Kind == KindNumber:
		return Boolean(orderHolds(op, compareFloats(l.Num, r.Num))), nil
	case l.Kind == KindString && r.Kind == KindString:
		return Boolean(orderHolds(op, compareStrings(l.Str, r.Str))), nil
	}
	return Value{}, fmt.Errorf("exprlang: cannot order %s against %s", l.Kind, r.Kind)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func orderHolds(op string, cmp int) bool {
	switch op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	}
	return false
}

func splice(toks []token, from, to int, v Value) []token {
	out := make([]token, 0, len(toks)-(to-from)+1)
	out = append(out, toks[:from]...)
	out = append(out, token{kind: tokValue, val: v})
	out = append(out, toks[to:]...)
	return out
}
