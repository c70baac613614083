package roulette

import (
	"errors"
	"math"
	"testing"
)

func stubTicket(t *testing.T, ticket float64) {
	t.Helper()
	original := spinRandomTicket
	spinRandomTicket = func(max float64) (float64, error) { return ticket, nil }
	t.Cleanup(func() { spinRandomTicket = original })
}

func configuredState(t *testing.T, items ...Item) *State {
	t.Helper()
	s := NewState()
	if err := s.UpdateItems(items); err != nil {
		t.Fatalf("UpdateItems failed: %v", err)
	}
	return s
}

func TestUpdateItems_Validation(t *testing.T) {
	s := NewState()
	if err := s.UpdateItems([]Item{{Label: "a", Weight: 1}, {Label: "", Weight: 1}}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("empty label must be rejected, got %v", err)
	}
	if err := s.UpdateItems([]Item{{Label: "a", Weight: 1}, {Label: "b", Weight: 0}}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("zero weight must be rejected, got %v", err)
	}
	if err := s.UpdateItems([]Item{{Label: "a", Weight: 1}, {Label: "b", Weight: 2.5}}); err != nil {
		t.Fatalf("valid items rejected: %v", err)
	}
}

func TestUpdateItems_OnlyWhileIdle(t *testing.T) {
	stubTicket(t, 0)
	s := configuredState(t, Item{Label: "a", Weight: 1}, Item{Label: "b", Weight: 1})

	if err := s.Spin(); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}
	if err := s.UpdateItems([]Item{{Label: "c", Weight: 1}, {Label: "d", Weight: 1}}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("update while spinning must fail, got %v", err)
	}
}

func TestSpin_RequiresTwoItems(t *testing.T) {
	s := NewState()
	if err := s.UpdateItems([]Item{{Label: "solo", Weight: 1}}); err != nil {
		t.Fatalf("UpdateItems failed: %v", err)
	}
	if err := s.Spin(); !errors.Is(err, ErrInsufficientItems) {
		t.Fatalf("expected ErrInsufficientItems, got %v", err)
	}
}

func TestSpin_CumulativeWalkBoundaries(t *testing.T) {
	// weights 1,3: tickets in [0,1) land on a, [1,4) land on b.
	cases := []struct {
		ticket float64
		want   string
	}{
		{0, "a"},
		{0.999, "a"},
		{1.0, "b"}, // strict ">" at the boundary
		{3.999, "b"},
	}

	for _, tc := range cases {
		stubbed := tc.ticket
		original := spinRandomTicket
		spinRandomTicket = func(max float64) (float64, error) { return stubbed, nil }

		s := configuredState(t, Item{Label: "a", Weight: 1}, Item{Label: "b", Weight: 3})
		if err := s.Spin(); err != nil {
			t.Fatalf("Spin failed: %v", err)
		}
		if err := s.CommitSpin(); err != nil {
			t.Fatalf("CommitSpin failed: %v", err)
		}
		if s.Winner.Label != tc.want {
			t.Fatalf("ticket %v chose %q, want %q", tc.ticket, s.Winner.Label, tc.want)
		}

		spinRandomTicket = original
	}
}

func TestSpin_TwoPhaseReveal(t *testing.T) {
	stubTicket(t, 0)
	s := configuredState(t, Item{Label: "a", Weight: 1}, Item{Label: "b", Weight: 1})

	if err := s.Spin(); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}
	if s.Status != StatusSpinning {
		t.Fatalf("unexpected status: %v", s.Status)
	}
	if s.Winner != nil {
		t.Fatal("winner must stay hidden while spinning")
	}
	if s.PendingIndex() != 0 {
		t.Fatalf("unexpected pending index: %d", s.PendingIndex())
	}

	// スピン中の再スピンは不可
	if err := s.Spin(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("spin while spinning must fail, got %v", err)
	}

	if err := s.CommitSpin(); err != nil {
		t.Fatalf("CommitSpin failed: %v", err)
	}
	if s.Status != StatusEnded || s.Winner == nil || s.WinnerIndex != 0 {
		t.Fatalf("unexpected end state: %+v", s)
	}
}

func TestSpin_TargetAngleLandsOnWinnerSector(t *testing.T) {
	stubTicket(t, 1.5) // weights 1,1,1,1 → index 1

	s := configuredState(t,
		Item{Label: "a", Weight: 1},
		Item{Label: "b", Weight: 1},
		Item{Label: "c", Weight: 1},
		Item{Label: "d", Weight: 1},
	)
	if err := s.Spin(); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}

	// segment=90, index=1: 4*360 + (360 - 90 - 45) = 1665
	if math.Abs(s.Rotation-1665) > 1e-9 {
		t.Fatalf("unexpected rotation: %v", s.Rotation)
	}
}

func TestSpin_RotationMonotonicAcrossSpins(t *testing.T) {
	stubTicket(t, 0)
	s := configuredState(t, Item{Label: "a", Weight: 1}, Item{Label: "b", Weight: 1})

	previous := s.Rotation
	for i := 0; i < 5; i++ {
		if err := s.Spin(); err != nil {
			t.Fatalf("Spin %d failed: %v", i, err)
		}
		if s.Rotation <= previous {
			t.Fatalf("rotation went backward: %v -> %v", previous, s.Rotation)
		}
		previous = s.Rotation
		if err := s.CommitSpin(); err != nil {
			t.Fatalf("CommitSpin %d failed: %v", i, err)
		}
	}
}

func TestReset_KeepsItemsAndRotation(t *testing.T) {
	stubTicket(t, 0)
	s := configuredState(t, Item{Label: "a", Weight: 1}, Item{Label: "b", Weight: 1})

	if err := s.Spin(); err != nil {
		t.Fatalf("Spin failed: %v", err)
	}
	if err := s.CommitSpin(); err != nil {
		t.Fatalf("CommitSpin failed: %v", err)
	}

	rotation := s.Rotation
	s.Reset()

	if s.Status != StatusIdle || s.Winner != nil {
		t.Fatalf("unexpected state after reset: %+v", s)
	}
	if len(s.Items) != 2 {
		t.Fatal("reset must keep items for re-spinning")
	}
	if s.Rotation != rotation {
		t.Fatal("reset must keep the accumulated rotation")
	}
}

func TestSpin_WeightedDistribution(t *testing.T) {
	// 実乱数で比率 weight/Σweight に収束することを確認する。
	// 4000回でσ≈0.007なので±0.05はまず外れない。
	s := configuredState(t, Item{Label: "rare", Weight: 1}, Item{Label: "common", Weight: 3})

	const trials = 4000
	wins := map[string]int{}
	for i := 0; i < trials; i++ {
		if err := s.Spin(); err != nil {
			t.Fatalf("Spin failed: %v", err)
		}
		if err := s.CommitSpin(); err != nil {
			t.Fatalf("CommitSpin failed: %v", err)
		}
		wins[s.Winner.Label]++
		s.Reset()
	}

	rareRatio := float64(wins["rare"]) / trials
	if math.Abs(rareRatio-0.25) > 0.05 {
		t.Fatalf("rare ratio %v too far from expected 0.25", rareRatio)
	}
}
