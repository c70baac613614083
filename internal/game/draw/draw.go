package draw

import (
	crand "crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/nantokaworks/chzzk-games/internal/types"
)

var (
	ErrEmptyPool         = errors.New("no eligible candidates")
	ErrInvalidTransition = errors.New("draw: invalid transition")
	errInvalidPoolSize   = errors.New("invalid pool size")
)

// Status は抽選の進行状態。
type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecruiting Status = "recruiting"
	StatusReady      Status = "ready"
	StatusPicking    Status = "picking"
	StatusEnded      Status = "ended"
)

// Candidate は募集期間中に参加登録された視聴者。
type Candidate struct {
	Nickname    string     `json:"nickname"`
	Role        types.Role `json:"role"`
	LastMessage string     `json:"last_message"`
}

// State は抽選ゲームの全状態。1チャンネルにつき1つ、actorだけが触る。
type State struct {
	Status                 Status      `json:"status"`
	Keyword                string      `json:"keyword,omitempty"`
	SubscriberOnly         bool        `json:"subscriber_only"`
	ExcludePreviousWinners bool        `json:"exclude_previous_winners"`
	TimerDuration          int         `json:"timer_duration,omitempty"`
	TimerRemaining         int         `json:"timer_remaining,omitempty"`
	WinnerCount            int         `json:"winner_count"`
	Candidates             []Candidate `json:"candidates"`
	Winners                []Candidate `json:"winners,omitempty"`
	WinnerHistory          []Candidate `json:"winner_history,omitempty"`

	// pending holds the true selection between Pick and CommitPick.
	// It is deliberately unexported so snapshots sent to display
	// surfaces never leak the winner before the reveal.
	pending []Candidate
}

var drawRandomIndex = secureRandomInt

// NewState は空のアイドル状態を返す。
func NewState() *State {
	return &State{Status: StatusIdle}
}

// StartRecruit は募集を開始する。前回分の参加者・当選者は破棄される。
func (s *State) StartRecruit(keyword string, subscriberOnly, excludePreviousWinners bool, duration int) error {
	if s.Status != StatusIdle && s.Status != StatusEnded {
		return ErrInvalidTransition
	}

	s.Status = StatusRecruiting
	s.Keyword = strings.TrimSpace(keyword)
	s.SubscriberOnly = subscriberOnly
	s.ExcludePreviousWinners = excludePreviousWinners
	s.TimerDuration = duration
	s.TimerRemaining = duration
	s.Candidates = nil
	s.Winners = nil
	s.WinnerCount = 0
	s.pending = nil
	return nil
}

// Admit applies one chat event against the admission predicates and
// reports whether the candidate list changed. Rejections are silent:
// duplicates and keyword misses are expected chat noise, not errors.
func (s *State) Admit(ev types.Event) bool {
	if s.Status != StatusRecruiting {
		return false
	}
	if s.Keyword != "" && !strings.HasPrefix(ev.Message, s.Keyword) {
		return false
	}
	if s.SubscriberOnly && !ev.Role.IsSubscriber() {
		return false
	}
	for _, c := range s.Candidates {
		if c.Nickname == ev.Nickname {
			return false
		}
	}

	s.Candidates = append(s.Candidates, Candidate{
		Nickname:    ev.Nickname,
		Role:        ev.Role,
		LastMessage: ev.Message,
	})
	return true
}

// Stop は募集を締め切り、抽選可能状態にする。
func (s *State) Stop() error {
	if s.Status != StatusRecruiting {
		return ErrInvalidTransition
	}
	s.Status = StatusReady
	s.TimerRemaining = 0
	return nil
}

// Pick selects count distinct winners from the eligible pool and moves
// to the picking state. The selection is held back until CommitPick so
// repeated renders during the reveal animation stay consistent.
func (s *State) Pick(count int) error {
	if s.Status != StatusReady && s.Status != StatusEnded {
		return ErrInvalidTransition
	}
	if count < 1 {
		count = 1
	}

	pool := s.eligiblePool()
	if len(pool) == 0 {
		return ErrEmptyPool
	}

	selection, err := sampleWithoutReplacement(pool, min(count, len(pool)))
	if err != nil {
		return err
	}

	s.WinnerCount = count
	s.pending = selection
	s.Status = StatusPicking
	return nil
}

// CommitPick は演出終了後に当選を確定し、履歴へ追記する。
func (s *State) CommitPick() error {
	if s.Status != StatusPicking {
		return ErrInvalidTransition
	}
	s.Winners = s.pending
	s.WinnerHistory = append(s.WinnerHistory, s.pending...)
	s.pending = nil
	s.Status = StatusEnded
	return nil
}

// Reset returns to idle. WinnerHistory survives so repeated raffles can
// keep excluding past winners; it is only dropped by ClearHistory.
func (s *State) Reset() {
	s.Status = StatusIdle
	s.Candidates = nil
	s.Winners = nil
	s.WinnerCount = 0
	s.pending = nil
	s.TimerDuration = 0
	s.TimerRemaining = 0
}

// ClearHistory は当選履歴を明示的に破棄する。
func (s *State) ClearHistory() {
	s.WinnerHistory = nil
}

// Tick decrements the recruiting countdown by one second and reports
// whether it expired. The caller is responsible for invoking Stop.
func (s *State) Tick() bool {
	if s.Status != StatusRecruiting || s.TimerDuration <= 0 {
		return false
	}
	if s.TimerRemaining > 0 {
		s.TimerRemaining--
	}
	return s.TimerRemaining <= 0
}

// PendingWinners exposes the held-back selection for the commit step.
func (s *State) PendingWinners() []Candidate {
	return s.pending
}

func (s *State) eligiblePool() []Candidate {
	excluded := make(map[string]bool, len(s.WinnerHistory))
	if s.ExcludePreviousWinners {
		for _, w := range s.WinnerHistory {
			excluded[w.Nickname] = true
		}
	}

	pool := make([]Candidate, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if s.SubscriberOnly && !c.Role.IsSubscriber() {
			continue
		}
		if excluded[c.Nickname] {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// sampleWithoutReplacement は残プールから一様に1つ選んで取り除く操作をn回繰り返す。
func sampleWithoutReplacement(pool []Candidate, n int) ([]Candidate, error) {
	remaining := make([]Candidate, len(pool))
	copy(remaining, pool)

	selection := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		idx, err := drawRandomIndex(len(remaining))
		if err != nil {
			return nil, err
		}
		selection = append(selection, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return selection, nil
}

func secureRandomInt(max int) (int, error) {
	if max <= 0 {
		return 0, errInvalidPoolSize
	}

	n, err := crand.Int(crand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
