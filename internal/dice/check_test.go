package dice

import (
	"math/rand"
	"testing"
)

func TestModifier(t *testing.T) {
	cases := []struct {
		attribute int
		want      int
	}{
		{3, -4}, {8, -1}, {9, -1}, {10, 0}, {11, 0}, {12, 1}, {15, 2}, {18, 4},
	}
	for _, tc := range cases {
		if got := Modifier(tc.attribute); got != tc.want {
			t.Fatalf("Modifier(%d) = %d, want %d", tc.attribute, got, tc.want)
		}
	}
}

func TestCheckCriticalsOverrideDifficulty(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	sawCriticalSuccess, sawCriticalFailure := false, false

	for i := 0; i < 1000; i++ {
		check, err := Check(10, 100, 0, rng)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if check.Roll.CriticalSuccess {
			sawCriticalSuccess = true
			if !check.Success {
				t.Fatal("natural 20 failed an impossible check")
			}
		}
		if check.Roll.CriticalFailure {
			sawCriticalFailure = true
			if check.Success {
				t.Fatal("natural 1 succeeded")
			}
		}
		if !check.Roll.CriticalSuccess && !check.Roll.CriticalFailure && check.Success {
			t.Fatal("non-critical roll beat difficulty 100")
		}
	}
	if !sawCriticalSuccess || !sawCriticalFailure {
		t.Fatalf("coverage incomplete: success=%t failure=%t", sawCriticalSuccess, sawCriticalFailure)
	}
}

func TestCheckMargin(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		check, err := Check(14, 10, 1, rng)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if check.Roll.CriticalSuccess || check.Roll.CriticalFailure {
			if check.Margin != 0 {
				t.Fatalf("critical check reported margin %d", check.Margin)
			}
			continue
		}
		want := check.Roll.Total - check.Difficulty
		if check.Margin != want {
			t.Fatalf("margin %d, want %d", check.Margin, want)
		}
		if check.Success != (check.Roll.Total >= check.Difficulty) {
			t.Fatal("success flag disagrees with totals")
		}
	}
}

func TestAdvantageDisadvantage(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		kept, first, second := Advantage(20, rng)
		if kept != first && kept != second {
			t.Fatalf("advantage kept %d not among %d,%d", kept, first, second)
		}
		if kept < first || kept < second {
			t.Fatalf("advantage kept %d below %d,%d", kept, first, second)
		}

		kept, first, second = Disadvantage(20, rng)
		if kept > first || kept > second {
			t.Fatalf("disadvantage kept %d above %d,%d", kept, first, second)
		}
	}
}
