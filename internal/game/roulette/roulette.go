package roulette

import (
	crand "crypto/rand"
	"errors"
	"math"
	"math/big"
	"strings"
)

var (
	ErrInsufficientItems = errors.New("roulette needs at least 2 items")
	ErrInvalidItem       = errors.New("roulette item needs a label and positive weight")
	ErrInvalidTransition = errors.New("roulette: invalid transition")
	errInvalidTotal      = errors.New("invalid total weight")
)

// ホイールが当選セクターに到達するまでの空回し回転数。
const baseRotations = 4

// Status はルーレットの進行状態。
type Status string

const (
	StatusIdle     Status = "idle"
	StatusSpinning Status = "spinning"
	StatusEnded    Status = "ended"
)

// Item はホイール上の1セクター。Weightが当選確率の比重になる。
type Item struct {
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// State はルーレットの全状態。Rotationは累積角度で、スピンを重ねても
// 減少しない（オーバーレイのアニメーションが逆回転しないように）。
type State struct {
	Status      Status  `json:"status"`
	Items       []Item  `json:"items"`
	Winner      *Item   `json:"winner,omitempty"`
	WinnerIndex int     `json:"winner_index"`
	Rotation    float64 `json:"rotation"`

	pendingIndex int
}

var spinRandomTicket = secureRandomFloat

// NewState は空のアイドル状態を返す。
func NewState() *State {
	return &State{Status: StatusIdle, WinnerIndex: -1, pendingIndex: -1}
}

// UpdateItems はホイール構成を差し替える。アイドル中のみ可能。
func (s *State) UpdateItems(items []Item) error {
	if s.Status != StatusIdle {
		return ErrInvalidTransition
	}
	for _, item := range items {
		if strings.TrimSpace(item.Label) == "" || item.Weight <= 0 {
			return ErrInvalidItem
		}
	}

	s.Items = items
	s.Winner = nil
	s.WinnerIndex = -1
	s.pendingIndex = -1
	return nil
}

// Spin performs the weighted selection and computes the target rotation
// the overlay animates to. The winner is held back until CommitSpin.
func (s *State) Spin() error {
	if s.Status != StatusIdle && s.Status != StatusEnded {
		return ErrInvalidTransition
	}
	if len(s.Items) < 2 {
		return ErrInsufficientItems
	}

	total := 0.0
	for _, item := range s.Items {
		total += item.Weight
	}

	ticket, err := spinRandomTicket(total)
	if err != nil {
		return err
	}

	// Walk the wheel accumulating weight; strict ">" keeps a
	// zero-weight item unselectable even if one ever slipped in.
	idx := len(s.Items) - 1
	cumulative := 0.0
	for i, item := range s.Items {
		cumulative += item.Weight
		if cumulative > ticket {
			idx = i
			break
		}
	}

	segment := 360.0 / float64(len(s.Items))
	landing := 360.0 - float64(idx)*segment - segment/2
	s.Rotation = math.Floor(s.Rotation/360.0)*360.0 + baseRotations*360.0 + landing

	s.pendingIndex = idx
	s.Winner = nil
	s.WinnerIndex = -1
	s.Status = StatusSpinning
	return nil
}

// CommitSpin はスピン演出終了後に当選を確定する。
func (s *State) CommitSpin() error {
	if s.Status != StatusSpinning || s.pendingIndex < 0 {
		return ErrInvalidTransition
	}
	winner := s.Items[s.pendingIndex]
	s.Winner = &winner
	s.WinnerIndex = s.pendingIndex
	s.pendingIndex = -1
	s.Status = StatusEnded
	return nil
}

// Reset clears the winner but keeps items and the accumulated rotation,
// so the wheel can be re-spun in place.
func (s *State) Reset() {
	s.Status = StatusIdle
	s.Winner = nil
	s.WinnerIndex = -1
	s.pendingIndex = -1
}

// PendingIndex exposes the held-back selection for the commit step.
func (s *State) PendingIndex() int {
	return s.pendingIndex
}

// secureRandomFloat は[0, max)の一様乱数を返す。53bit精度で十分。
func secureRandomFloat(max float64) (float64, error) {
	if max <= 0 {
		return 0, errInvalidTotal
	}

	const resolution = 1 << 53
	n, err := crand.Int(crand.Reader, big.NewInt(resolution))
	if err != nil {
		return 0, err
	}
	return max * float64(n.Int64()) / float64(resolution), nil
}
