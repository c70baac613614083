package game

import (
	"errors"
	"strings"

	"github.com/nantokaworks/chzzk-games/internal/game/draw"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
	"github.com/nantokaworks/chzzk-games/internal/types"
	"github.com/samber/lo"
)

// ErrUnknownCommand はCommandを実装しない値がApplyに渡された場合のみ返る。
var ErrUnknownCommand = errors.New("unknown command")

// Mode はチャンネルでアクティブなゲーム種別。
type Mode string

const (
	ModeNone     Mode = "none"
	ModeDraw     Mode = "draw"
	ModeVote     Mode = "vote"
	ModeRoulette Mode = "roulette"
)

// RevealKind は予約すべき確定処理の種別。
type RevealKind string

const (
	RevealDraw RevealKind = "draw"
	RevealVote RevealKind = "vote"
	RevealSpin RevealKind = "spin"
)

// Effect はコマンド適用後にactorが取るべきタイマー操作。
// Sessionは時間を扱わない。時間はすべてactor側の責務。
type Effect struct {
	StartCountdown bool
	StopCountdown  bool
	ScheduleReveal RevealKind // empty = nothing to schedule
	CancelReveal   bool
}

// ChatLine は当選者チャットログの1行。
type ChatLine struct {
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

// Session は1チャンネル分のゲーム状態の唯一の所有者。
// 並行アクセス保護は持たない。必ずchannel actor経由で触ること。
type Session struct {
	ChannelID     string
	ActiveMode    Mode
	Draw          *draw.State
	Vote          *vote.State
	Roulette      *roulette.State
	WinnerChatLog []ChatLine

	cfg Config
}

// NewSession は空のセッションを作る。
func NewSession(channelID string, cfg Config) *Session {
	cfg = cfg.normalized()
	return &Session{
		ChannelID:  channelID,
		ActiveMode: ModeNone,
		Draw:       draw.NewState(),
		Vote:       vote.NewState(cfg.VotePrefix),
		Roulette:   roulette.NewState(),
		cfg:        cfg,
	}
}

// Config returns the session's effective configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Apply dispatches one control command. On error the state is
// unchanged; the effect tells the actor which timers to arm or cancel.
func (s *Session) Apply(cmd Command) (Effect, error) {
	switch c := cmd.(type) {
	case StartDraw:
		return s.applyStartDraw(c)
	case StopDraw:
		if err := s.Draw.Stop(); err != nil {
			return Effect{}, err
		}
		return Effect{StopCountdown: true}, nil
	case PickDrawWinners:
		if err := s.Draw.Pick(c.Count); err != nil {
			return Effect{}, err
		}
		s.WinnerChatLog = nil
		return Effect{ScheduleReveal: RevealDraw}, nil
	case ResetDraw:
		s.Draw.Reset()
		if s.ActiveMode == ModeDraw {
			s.ActiveMode = ModeNone
		}
		return Effect{StopCountdown: true, CancelReveal: true}, nil
	case ClearDrawHistory:
		s.Draw.ClearHistory()
		return Effect{}, nil

	case StartVote:
		return s.applyStartVote(c)
	case EndVote:
		if err := s.Vote.End(); err != nil {
			return Effect{}, err
		}
		return Effect{StopCountdown: true}, nil
	case PickVoteWinner:
		if err := s.Vote.PickWinner(c.OptionID, c.SubscriberOnly); err != nil {
			return Effect{}, err
		}
		s.WinnerChatLog = nil
		return Effect{ScheduleReveal: RevealVote}, nil
	case ResetVote:
		s.Vote.Reset()
		if s.ActiveMode == ModeVote {
			s.ActiveMode = ModeNone
		}
		return Effect{StopCountdown: true, CancelReveal: true}, nil
	case TransferVoteToRoulette:
		return s.applyTransfer(c)

	case UpdateRoulette:
		return s.applyUpdateRoulette(c)
	case SpinRoulette:
		return s.applySpinRoulette()
	case ResetRoulette:
		s.Roulette.Reset()
		if s.ActiveMode == ModeRoulette {
			s.ActiveMode = ModeNone
		}
		return Effect{CancelReveal: true}, nil
	}
	return Effect{}, ErrUnknownCommand
}

func (s *Session) applyStartDraw(c StartDraw) (Effect, error) {
	// If another game holds the session its draw state is idle, so the
	// only failing case (draw already recruiting or mid-reveal) happens
	// before anything else gets reset.
	if s.ActiveMode != ModeDraw {
		s.switchMode(ModeDraw)
	}
	if err := s.Draw.StartRecruit(c.Keyword, c.SubscriberOnly, c.ExcludePreviousWinners, c.Duration); err != nil {
		return Effect{}, err
	}
	s.WinnerChatLog = nil
	return Effect{
		StartCountdown: c.Duration > 0,
		StopCountdown:  c.Duration <= 0,
		CancelReveal:   true,
	}, nil
}

func (s *Session) applyStartVote(c StartVote) (Effect, error) {
	// Validate the arguments before any other game gets reset.
	nonEmpty := lo.CountBy(c.Options, func(label string) bool {
		return strings.TrimSpace(label) != ""
	})
	if nonEmpty < 2 {
		return Effect{}, vote.ErrInsufficientOptions
	}
	unit := c.UnitAmount
	if c.Mode == vote.ModeDonation && unit < 1 {
		unit = s.cfg.DefaultUnitAmount
	}

	if s.ActiveMode != ModeVote {
		s.switchMode(ModeVote)
	}
	if err := s.Vote.Start(c.Title, c.Mode, c.Options, c.AllowMultiple, unit, c.Duration); err != nil {
		return Effect{}, err
	}
	s.WinnerChatLog = nil
	return Effect{
		StartCountdown: c.Duration > 0,
		StopCountdown:  c.Duration <= 0,
		CancelReveal:   true,
	}, nil
}

func (s *Session) applyTransfer(c TransferVoteToRoulette) (Effect, error) {
	items, err := s.Vote.TransferItems(c.IncludeZero)
	if err != nil {
		return Effect{}, err
	}

	s.Vote.Reset()
	s.Roulette.Reset()
	if err := s.Roulette.UpdateItems(items); err != nil {
		return Effect{}, err
	}
	s.ActiveMode = ModeRoulette
	return Effect{StopCountdown: true, CancelReveal: true}, nil
}

func (s *Session) applyUpdateRoulette(c UpdateRoulette) (Effect, error) {
	// Validate items before any other game gets reset.
	for _, item := range c.Items {
		if strings.TrimSpace(item.Label) == "" || item.Weight <= 0 {
			return Effect{}, roulette.ErrInvalidItem
		}
	}

	if s.ActiveMode != ModeRoulette {
		s.switchMode(ModeRoulette)
	}
	if err := s.Roulette.UpdateItems(c.Items); err != nil {
		return Effect{}, err
	}
	return Effect{}, nil
}

func (s *Session) applySpinRoulette() (Effect, error) {
	if len(s.Roulette.Items) < 2 {
		return Effect{}, roulette.ErrInsufficientItems
	}
	if s.ActiveMode != ModeRoulette {
		s.switchMode(ModeRoulette)
	}
	if err := s.Roulette.Spin(); err != nil {
		return Effect{}, err
	}
	return Effect{ScheduleReveal: RevealSpin}, nil
}

// switchMode resets whichever game is currently active and hands the
// session to the new mode. Exactly one game may be non-idle at a time.
func (s *Session) switchMode(next Mode) {
	switch s.ActiveMode {
	case ModeDraw:
		s.Draw.Reset()
	case ModeVote:
		s.Vote.Reset()
	case ModeRoulette:
		s.Roulette.Reset()
	}
	s.ActiveMode = next
}

// CommitReveal finalizes a pending two-phase pick or spin.
func (s *Session) CommitReveal(kind RevealKind) error {
	switch kind {
	case RevealDraw:
		return s.Draw.CommitPick()
	case RevealVote:
		return s.Vote.CommitPick()
	case RevealSpin:
		return s.Roulette.CommitSpin()
	}
	return ErrUnknownCommand
}

// TickCountdown advances the active game's countdown by one second and
// auto-closes it on expiry. Reports whether observable state changed.
func (s *Session) TickCountdown() (changed, expired bool) {
	switch s.ActiveMode {
	case ModeDraw:
		if s.Draw.Status != draw.StatusRecruiting || s.Draw.TimerDuration <= 0 {
			return false, false
		}
		if s.Draw.Tick() {
			_ = s.Draw.Stop()
			return true, true
		}
		return true, false
	case ModeVote:
		if s.Vote.Status != vote.StatusActive || s.Vote.TimerDuration <= 0 {
			return false, false
		}
		if s.Vote.Tick() {
			_ = s.Vote.End()
			return true, true
		}
		return true, false
	}
	return false, false
}

// HandleEvent routes one normalized chat/donation event to the active
// game and reports whether observable state changed. Events that match
// no acceptance predicate are silently dropped.
func (s *Session) HandleEvent(ev types.Event) bool {
	if !ev.Valid() {
		return false
	}

	switch s.ActiveMode {
	case ModeDraw:
		if s.Draw.Status == draw.StatusRecruiting {
			return s.Draw.Admit(ev)
		}
		return s.captureWinnerChat(ev)
	case ModeVote:
		if s.Vote.Status == vote.StatusActive {
			if ev.IsDonation() {
				return s.Vote.ApplyDonation(ev)
			}
			return s.Vote.ApplyChat(ev)
		}
		return s.captureWinnerChat(ev)
	}
	return false
}

// captureWinnerChat appends chat from a known winner to the transient
// display log. Purely a presentation flourish; bounded by config.
func (s *Session) captureWinnerChat(ev types.Event) bool {
	if !s.isWinnerNickname(ev.Nickname) {
		return false
	}

	s.WinnerChatLog = append(s.WinnerChatLog, ChatLine{
		Nickname: ev.Nickname,
		Message:  ev.Message,
	})
	if over := len(s.WinnerChatLog) - s.cfg.WinnerChatLogCap; over > 0 {
		s.WinnerChatLog = s.WinnerChatLog[over:]
	}
	return true
}

func (s *Session) isWinnerNickname(nickname string) bool {
	switch s.ActiveMode {
	case ModeDraw:
		if s.Draw.Status != draw.StatusEnded {
			return false
		}
		for _, w := range s.Draw.Winners {
			if w.Nickname == nickname {
				return true
			}
		}
	case ModeVote:
		if s.Vote.Status != vote.StatusEnded || s.Vote.Winner == nil {
			return false
		}
		return s.Vote.Winner.Nickname == nickname
	}
	return false
}
