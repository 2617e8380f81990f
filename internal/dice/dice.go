// Package dice implements dice-expression parsing and evaluation.
//
// An expression is one or more terms joined by + or -. A term is either a
// dice group `[count]d<faces>` (count defaults to 1) or an integer constant.
// Evaluation draws from a caller-supplied random source so a fixed seed
// reproduces any outcome.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxCount bounds the number of dice in a single term.
	MaxCount = 100
	// MaxFaces bounds the face count of a single die.
	MaxFaces = 1000

	// defaultExpression is rolled when the caller provides an empty string.
	defaultExpression = "d20"
)

// ErrInvalidExpression indicates the dice expression could not be parsed.
var ErrInvalidExpression = errors.New("invalid dice expression")

// Term is a single component of a dice expression.
type Term struct {
	// Dice reports whether the term is a dice group rather than a constant.
	Dice bool
	// Count and Faces describe a dice group.
	Count int
	Faces int
	// Constant holds the value of a constant term.
	Constant int
	// Negative marks terms introduced by a minus sign.
	Negative bool
}

// Expression is a parsed, normalized dice expression.
type Expression struct {
	Raw   string
	Terms []Term
}

// Result captures one evaluation of an expression.
type Result struct {
	Expression string
	Total      int
	// Rolls lists each die's raw draw in term order.
	Rolls []int
	// Modifier is the net contribution of constant terms.
	Modifier int
	// CriticalSuccess and CriticalFailure are set only by the first 1d20
	// term in the expression: a natural 20 or a natural 1.
	CriticalSuccess bool
	CriticalFailure bool
}

var termPattern = regexp.MustCompile(`([+-])(\d*d\d+|\d+)`)

// Parse normalizes and validates a dice expression.
func Parse(raw string) (Expression, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
	if normalized == "" {
		normalized = defaultExpression
	}
	if !strings.HasPrefix(normalized, "+") && !strings.HasPrefix(normalized, "-") {
		normalized = "+" + normalized
	}

	var terms []Term
	pos := 0
	for _, match := range termPattern.FindAllStringSubmatchIndex(normalized, -1) {
		if match[0] != pos {
			return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, raw)
		}
		pos = match[1]

		negative := normalized[match[2]:match[3]] == "-"
		body := normalized[match[4]:match[5]]

		term, err := parseTerm(body, negative)
		if err != nil {
			return Expression{}, err
		}
		terms = append(terms, term)
	}
	if pos != len(normalized) || len(terms) == 0 {
		return Expression{}, fmt.Errorf("%w: %q", ErrInvalidExpression, raw)
	}

	return Expression{Raw: strings.TrimPrefix(normalized, "+"), Terms: terms}, nil
}

func parseTerm(body string, negative bool) (Term, error) {
	if countStr, facesStr, ok := strings.Cut(body, "d"); ok {
		count := 1
		if countStr != "" {
			parsed, err := strconv.Atoi(countStr)
			if err != nil {
				return Term{}, fmt.Errorf("%w: dice count %q", ErrInvalidExpression, countStr)
			}
			count = parsed
		}
		faces, err := strconv.Atoi(facesStr)
		if err != nil {
			return Term{}, fmt.Errorf("%w: dice faces %q", ErrInvalidExpression, facesStr)
		}
		if count < 1 || count > MaxCount {
			return Term{}, fmt.Errorf("%w: dice count must be between 1 and %d", ErrInvalidExpression, MaxCount)
		}
		if faces < 1 || faces > MaxFaces {
			return Term{}, fmt.Errorf("%w: dice faces must be between 1 and %d", ErrInvalidExpression, MaxFaces)
		}
		return Term{Dice: true, Count: count, Faces: faces, Negative: negative}, nil
	}

	value, err := strconv.Atoi(body)
	if err != nil {
		return Term{}, fmt.Errorf("%w: constant %q", ErrInvalidExpression, body)
	}
	return Term{Constant: value, Negative: negative}, nil
}

// Min returns the lowest total the expression can produce.
func (e Expression) Min() int {
	total := 0
	for _, term := range e.Terms {
		total += term.bound(true)
	}
	return total
}

// Max returns the highest total the expression can produce.
func (e Expression) Max() int {
	total := 0
	for _, term := range e.Terms {
		total += term.bound(false)
	}
	return total
}

func (t Term) bound(low bool) int {
	value := t.Constant
	if t.Dice {
		value = t.Count
		if low == t.Negative {
			value = t.Count * t.Faces
		}
	}
	if t.Negative {
		return -value
	}
	return value
}

// Roll evaluates the expression against the supplied random source.
func (e Expression) Roll(rng *rand.Rand) Result {
	result := Result{Expression: e.Raw}
	critSet := false

	for _, term := range e.Terms {
		sign := 1
		if term.Negative {
			sign = -1
		}

		if !term.Dice {
			result.Modifier += term.Constant * sign
			result.Total += term.Constant * sign
			continue
		}

		for i := 0; i < term.Count; i++ {
			draw := rng.Intn(term.Faces) + 1
			result.Rolls = append(result.Rolls, draw)
			result.Total += draw * sign
		}

		// Only the first single d20 in the expression decides criticals.
		if !critSet && term.Faces == 20 && term.Count == 1 {
			critSet = true
			draw := result.Rolls[len(result.Rolls)-1]
			result.CriticalSuccess = draw == 20
			result.CriticalFailure = draw == 1
		}
	}

	return result
}

// Evaluate parses and rolls an expression in one step.
func Evaluate(raw string, rng *rand.Rand) (Result, error) {
	expr, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}
	return expr.Roll(rng), nil
}
