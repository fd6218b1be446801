package exprlang

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokValue tokenKind = iota
	tokIdent
	tokCompare // == != >= <= > <
	tokAnd
	tokOr
	tokNot
	tokFunc // MIN MAX COUNT SUM
	tokLParen
	tokRParen
	tokComma
)

// token is one element of the tagged-variant stream the evaluator folds.
// Resolved sub-expressions are substituted back as tokValue tokens.
type token struct {
	kind tokenKind
	text string // operator, identifier or function name
	val  Value  // payload when kind == tokValue
}

var functionNames = map[string]bool{
	"MIN":   true,
	"MAX":   true,
	"COUNT": true,
	"SUM":   true,
}

// isDelimiter reports whether b terminates an identifier/number word.
func isDelimiter(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '(', ')', ',', '=', '!', '<', '>', '\'', '"':
		return true
	}
	return false
}

// tokenize scans an expression left to right. Multi-character operators and
// keywords are recognized greedily before falling back to word accumulation;
// whitespace, parentheses and commas are token boundaries.
func tokenize(expr string) ([]token, error) {
	var toks []token
	i, n := 0, len(expr)
	for i < n {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(expr[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("exprlang: unterminated string literal at offset %d", i)
			}
			toks = append(toks, token{kind: tokValue, val: Str(expr[i+1 : i+1+end])})
			i += end + 2
		case strings.HasPrefix(expr[i:], "=="),
			strings.HasPrefix(expr[i:], "!="),
			strings.HasPrefix(expr[i:], ">="),
			strings.HasPrefix(expr[i:], "<="):
			toks = append(toks, token{kind: tokCompare, text: expr[i : i+2]})
			i += 2
		case c == '>' || c == '<':
			toks = append(toks, token{kind: tokCompare, text: string(c)})
			i++
		case c == '=' || c == '!':
			return nil, fmt.Errorf("exprlang: stray %q at offset %d", string(c), i)
		default:
			j := i
			for j < n && !isDelimiter(expr[j]) {
				j++
			}
			tok, err := classifyWord(expr[i:j])
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = j
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("exprlang: empty expression")
	}
	return toks, nil
}

func classifyWord(word string) (token, error) {
	switch strings.ToUpper(word) {
	case "AND":
		return token{kind: tokAnd}, nil
	case "OR":
		return token{kind: tokOr}, nil
	case "NOT":
		return token{kind: tokNot}, nil
	case "TRUE":
		return token{kind: tokValue, val: Boolean(true)}, nil
	case "FALSE":
		return token{kind: tokValue, val: Boolean(false)}, nil
	case "NULL":
		return token{kind: tokValue, val: Null()}, nil
	}
	if upper := strings.ToUpper(word); functionNames[upper] {
		return token{kind: tokFunc, text: upper}, nil
	}
	if isNumericWord(word) {
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return token{}, fmt.Errorf("exprlang: bad number %q: %w", word, err)
		}
		return token{kind: tokValue, val: Number(f)}, nil
	}
	return token{kind: tokIdent, text: word}, nil
}

// isNumericWord reports whether the word is a bare integer or decimal
// literal, with an optional leading sign.
func isNumericWord(word string) bool {
	s := word
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	dots := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
		case s[i] == '.':
			dots++
			if dots > 1 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Identifiers returns the distinct variable identifiers referenced by an
// expression, in order of first appearance. Literals, function names and
// keywords are not identifiers. Used by the rulebook loader to check that a
// trigger declares every variable it reads.
func Identifiers(expression string) ([]string, error) {
	toks, err := tokenize(expression)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, t := range toks {
		if t.kind == tokIdent && !seen[t.text] {
			seen[t.text] = true
			names = append(names, t.text)
		}
	}
	return names, nil
}
