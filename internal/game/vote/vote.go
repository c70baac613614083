package vote

import (
	crand "crypto/rand"
	"errors"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"github.com/samber/lo"
)

var (
	ErrEmptyPool           = errors.New("no eligible voters")
	ErrInsufficientOptions = errors.New("vote needs at least 2 options")
	ErrInvalidUnitAmount   = errors.New("donation vote needs a positive unit amount")
	ErrUnknownOption       = errors.New("unknown option id")
	ErrInvalidTransition   = errors.New("vote: invalid transition")
	errInvalidPoolSize     = errors.New("invalid pool size")
)

// DefaultPrefix は投票コマンドの既定プレフィックス。
const DefaultPrefix = "!투표"

// Status は投票の進行状態。
type Status string

const (
	StatusIdle    Status = "idle"
	StatusActive  Status = "active"
	StatusPicking Status = "picking"
	StatusEnded   Status = "ended"
)

// Mode は集計方法。numericは1人1票（複数可設定あり）、donationは金額換算。
type Mode string

const (
	ModeNumeric  Mode = "numeric"
	ModeDonation Mode = "donation"
)

// Voter は1票分の投票者エントリ。ドネーション投票では同一ドネーションから
// 複数エントリが生まれ、それぞれが元の金額を持つ。
type Voter struct {
	Nickname string     `json:"nickname"`
	Role     types.Role `json:"role"`
	Amount   int        `json:"amount,omitempty"`
}

// Option は投票選択肢。IDは作成時に1から振られ、セッション中不変。
type Option struct {
	ID     int     `json:"id"`
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Voters []Voter `json:"voters"`
}

// State は投票ゲームの全状態。
type State struct {
	Status             Status   `json:"status"`
	Mode               Mode     `json:"mode"`
	Title              string   `json:"title"`
	Options            []Option `json:"options"`
	AllowMultipleVotes bool     `json:"allow_multiple_votes"`
	UnitAmount         int      `json:"unit_amount,omitempty"`
	TimerDuration      int      `json:"timer_duration,omitempty"`
	TimerRemaining     int      `json:"timer_remaining,omitempty"`
	Winner             *Voter   `json:"winner,omitempty"`
	WinnerOptionID     int      `json:"winner_option_id,omitempty"`
	Prefix             string   `json:"prefix"`

	pattern         *regexp.Regexp
	pendingWinner   *Voter
	pendingOptionID int
}

var voteRandomIndex = secureRandomInt

// NewState は指定プレフィックスで空のアイドル状態を返す。
func NewState(prefix string) *State {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultPrefix
	}
	return &State{
		Status:  StatusIdle,
		Prefix:  prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `\s*(\d+)`),
	}
}

// Start は投票を開始する。空でない選択肢が2つ以上必要。
func (s *State) Start(title string, mode Mode, labels []string, allowMultiple bool, unitAmount, duration int) error {
	if s.Status != StatusIdle && s.Status != StatusEnded {
		return ErrInvalidTransition
	}

	trimmed := lo.FilterMap(labels, func(label string, _ int) (string, bool) {
		label = strings.TrimSpace(label)
		return label, label != ""
	})
	if len(trimmed) < 2 {
		return ErrInsufficientOptions
	}
	if mode == ModeDonation && unitAmount < 1 {
		return ErrInvalidUnitAmount
	}

	s.Status = StatusActive
	s.Mode = mode
	s.Title = title
	s.AllowMultipleVotes = allowMultiple
	s.UnitAmount = unitAmount
	s.TimerDuration = duration
	s.TimerRemaining = duration
	s.Winner = nil
	s.WinnerOptionID = 0
	s.pendingWinner = nil
	s.pendingOptionID = 0
	s.Options = lo.Map(trimmed, func(label string, i int) Option {
		return Option{ID: i + 1, Label: label, Voters: []Voter{}}
	})
	return nil
}

// ApplyChat counts one numeric-mode chat vote and reports whether the
// tally changed. Rejections are silent chat noise.
func (s *State) ApplyChat(ev types.Event) bool {
	if s.Status != StatusActive || s.Mode != ModeNumeric {
		return false
	}

	optionID, ok := s.parseSelection(ev.Message)
	if !ok {
		return false
	}
	option := s.findOption(optionID)
	if option == nil {
		return false
	}
	if !s.AllowMultipleVotes && s.hasVoted(ev.Nickname) {
		return false
	}

	option.Count++
	option.Voters = append(option.Voters, Voter{Nickname: ev.Nickname, Role: ev.Role})
	return true
}

// ApplyDonation counts a donation-mode vote: floor(amount/unit) votes,
// each recorded as its own voter entry carrying the donation amount.
// When AllowMultipleVotes is false a repeat donor is rejected outright;
// the earlier vote is never replaced.
func (s *State) ApplyDonation(ev types.Event) bool {
	if s.Status != StatusActive || s.Mode != ModeDonation {
		return false
	}
	if s.UnitAmount < 1 {
		return false
	}

	votes := ev.DonationAmount / s.UnitAmount
	if votes < 1 {
		return false
	}

	optionID, ok := s.parseSelection(ev.Message)
	if !ok {
		return false
	}
	option := s.findOption(optionID)
	if option == nil {
		return false
	}
	if !s.AllowMultipleVotes && s.hasVoted(ev.Nickname) {
		return false
	}

	option.Count += votes
	for i := 0; i < votes; i++ {
		option.Voters = append(option.Voters, Voter{
			Nickname: ev.Nickname,
			Role:     ev.Role,
			Amount:   ev.DonationAmount,
		})
	}
	return true
}

// End は集計を締め切る。
func (s *State) End() error {
	if s.Status != StatusActive {
		return ErrInvalidTransition
	}
	s.Status = StatusEnded
	s.TimerRemaining = 0
	return nil
}

// PickWinner samples one voter of the given option uniformly and moves
// to the picking state; the result is held back until CommitPick.
func (s *State) PickWinner(optionID int, subscriberOnly bool) error {
	if s.Status != StatusEnded {
		return ErrInvalidTransition
	}
	option := s.findOption(optionID)
	if option == nil {
		return ErrUnknownOption
	}

	pool := option.Voters
	if subscriberOnly {
		pool = lo.Filter(pool, func(v Voter, _ int) bool {
			return v.Role.IsSubscriber()
		})
	}
	if len(pool) == 0 {
		return ErrEmptyPool
	}

	idx, err := voteRandomIndex(len(pool))
	if err != nil {
		return err
	}

	winner := pool[idx]
	s.pendingWinner = &winner
	s.pendingOptionID = optionID
	s.Status = StatusPicking
	return nil
}

// CommitPick は演出終了後に当選者を確定する。
func (s *State) CommitPick() error {
	if s.Status != StatusPicking || s.pendingWinner == nil {
		return ErrInvalidTransition
	}
	s.Winner = s.pendingWinner
	s.WinnerOptionID = s.pendingOptionID
	s.pendingWinner = nil
	s.pendingOptionID = 0
	s.Status = StatusEnded
	return nil
}

// TransferItems converts the current tally into roulette items, one per
// option weighted by its count. Zero-count options are dropped unless
// includeZero forces them in with weight 1.
func (s *State) TransferItems(includeZero bool) ([]roulette.Item, error) {
	if s.Status != StatusActive && s.Status != StatusEnded {
		return nil, ErrInvalidTransition
	}

	items := lo.FilterMap(s.Options, func(o Option, _ int) (roulette.Item, bool) {
		if o.Count > 0 {
			return roulette.Item{Label: o.Label, Weight: float64(o.Count)}, true
		}
		if includeZero {
			return roulette.Item{Label: o.Label, Weight: 1}, true
		}
		return roulette.Item{}, false
	})
	if len(items) < 2 {
		return nil, roulette.ErrInsufficientItems
	}
	return items, nil
}

// Reset returns to idle, discarding all options and votes.
func (s *State) Reset() {
	s.Status = StatusIdle
	s.Mode = ""
	s.Title = ""
	s.Options = nil
	s.AllowMultipleVotes = false
	s.UnitAmount = 0
	s.TimerDuration = 0
	s.TimerRemaining = 0
	s.Winner = nil
	s.WinnerOptionID = 0
	s.pendingWinner = nil
	s.pendingOptionID = 0
}

// Tick decrements the voting countdown by one second and reports
// whether it expired. The caller is responsible for invoking End.
func (s *State) Tick() bool {
	if s.Status != StatusActive || s.TimerDuration <= 0 {
		return false
	}
	if s.TimerRemaining > 0 {
		s.TimerRemaining--
	}
	return s.TimerRemaining <= 0
}

// TotalVotes は全選択肢の合計票数。
func (s *State) TotalVotes() int {
	return lo.SumBy(s.Options, func(o Option) int { return o.Count })
}

// PendingWinner exposes the held-back selection for the commit step.
func (s *State) PendingWinner() *Voter {
	return s.pendingWinner
}

func (s *State) parseSelection(message string) (int, bool) {
	if s.pattern == nil {
		s.pattern = regexp.MustCompile(`^` + regexp.QuoteMeta(s.Prefix) + `\s*(\d+)`)
	}
	m := s.pattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *State) findOption(id int) *Option {
	for i := range s.Options {
		if s.Options[i].ID == id {
			return &s.Options[i]
		}
	}
	return nil
}

func (s *State) hasVoted(nickname string) bool {
	for _, option := range s.Options {
		for _, voter := range option.Voters {
			if voter.Nickname == nickname {
				return true
			}
		}
	}
	return false
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
