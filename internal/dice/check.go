package dice

import (
	"fmt"
	"math/rand"
)

// CheckResult captures an attribute check against a difficulty class.
type CheckResult struct {
	Roll       Result
	Difficulty int
	Success    bool
	// Margin is how far the total landed from the difficulty; positive on
	// success, negative on failure, zero when a critical decided the check.
	Margin int
}

// Modifier converts an attribute score to its check modifier.
func Modifier(attribute int) int {
	// Integer division truncates toward zero; shift so 9 maps to -1, not 0.
	diff := attribute - 10
	if diff < 0 {
		diff--
	}
	return diff / 2
}

// Check rolls a d20 attribute check. A natural 20 succeeds and a natural 1
// fails regardless of the difficulty.
func Check(attribute, difficulty, extra int, rng *rand.Rand) (CheckResult, error) {
	total := Modifier(attribute) + extra

	expr := "d20"
	if total != 0 {
		expr = fmt.Sprintf("d20%+d", total)
	}
	roll, err := Evaluate(expr, rng)
	if err != nil {
		return CheckResult{}, err
	}

	check := CheckResult{Roll: roll, Difficulty: difficulty}
	switch {
	case roll.CriticalSuccess:
		check.Success = true
	case roll.CriticalFailure:
		check.Success = false
	default:
		check.Success = roll.Total >= difficulty
		check.Margin = roll.Total - difficulty
	}
	return check, nil
}

// Advantage rolls two dice of the given faces and keeps the higher.
func Advantage(faces int, rng *rand.Rand) (kept, first, second int) {
	first = rng.Intn(faces) + 1
	second = rng.Intn(faces) + 1
	kept = first
	if second > first {
		kept = second
	}
	return kept, first, second
}

// Disadvantage rolls two dice of the given faces and keeps the lower.
func Disadvantage(faces int, rng *rand.Rand) (kept, first, second int) {
	first = rng.Intn(faces) + 1
	second = rng.Intn(faces) + 1
	kept = first
	if second < first {
		kept = second
	}
	return kept, first, second
}
