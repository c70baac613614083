package game

import (
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
)

// Command はコントロール面から受け付ける操作の閉じた直和型。
// 新しいバリアントを足すとSession.Applyのswitchが網羅漏れで落ちるので、
// 文字列typeディスパッチのように黙って無視されることはない。
type Command interface{ isCommand() }

type StartDraw struct {
	Keyword                string
	SubscriberOnly         bool
	ExcludePreviousWinners bool
	Duration               int // seconds, 0 = no countdown
}

type StopDraw struct{}

type PickDrawWinners struct {
	Count int
}

type ResetDraw struct{}

// ClearDrawHistory は当選履歴の明示的な破棄。Resetでは消えない。
type ClearDrawHistory struct{}

type StartVote struct {
	Title         string
	Mode          vote.Mode
	Options       []string
	AllowMultiple bool
	UnitAmount    int // donation mode; 0 = use configured default
	Duration      int // seconds, 0 = no countdown
}

type EndVote struct{}

type PickVoteWinner struct {
	OptionID       int
	SubscriberOnly bool
}

type ResetVote struct{}

type TransferVoteToRoulette struct {
	IncludeZero bool
}

type UpdateRoulette struct {
	Items []roulette.Item
}

type SpinRoulette struct{}

type ResetRoulette struct{}

func (StartDraw) isCommand()              {}
func (StopDraw) isCommand()               {}
func (PickDrawWinners) isCommand()        {}
func (ResetDraw) isCommand()              {}
func (ClearDrawHistory) isCommand()       {}
func (StartVote) isCommand()              {}
func (EndVote) isCommand()                {}
func (PickVoteWinner) isCommand()         {}
func (ResetVote) isCommand()              {}
func (TransferVoteToRoulette) isCommand() {}
func (UpdateRoulette) isCommand()         {}
func (SpinRoulette) isCommand()           {}
func (ResetRoulette) isCommand()          {}
