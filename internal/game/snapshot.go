package game

import (
	"slices"

	"github.com/nantokaworks/chzzk-games/internal/game/draw"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
	"github.com/samber/lo"
)

// Snapshot は同期の唯一の単位。差分は送らず、毎回全状態を配る。
// ディスプレイ面は受け取ったものをそのまま描画するだけなので、同じ
// スナップショットを二度適用しても結果は変わらない。
type Snapshot struct {
	ChannelID     string         `json:"channel_id"`
	ActiveMode    Mode           `json:"active_mode"`
	Draw          draw.State     `json:"draw"`
	Vote          vote.State     `json:"vote"`
	Roulette      roulette.State `json:"roulette"`
	WinnerChatLog []ChatLine     `json:"winner_chat_log"`
}

// Snapshot serializes the full session state. All slices are deep
// copies: the result may outlive the actor loop that produced it.
func (s *Session) Snapshot() Snapshot {
	d := *s.Draw
	d.Candidates = slices.Clone(d.Candidates)
	d.Winners = slices.Clone(d.Winners)
	d.WinnerHistory = slices.Clone(d.WinnerHistory)

	v := *s.Vote
	v.Options = lo.Map(v.Options, func(o vote.Option, _ int) vote.Option {
		o.Voters = slices.Clone(o.Voters)
		return o
	})
	if v.Winner != nil {
		winner := *v.Winner
		v.Winner = &winner
	}

	r := *s.Roulette
	r.Items = slices.Clone(r.Items)
	if r.Winner != nil {
		winner := *r.Winner
		r.Winner = &winner
	}

	return Snapshot{
		ChannelID:     s.ChannelID,
		ActiveMode:    s.ActiveMode,
		Draw:          d,
		Vote:          v,
		Roulette:      r,
		WinnerChatLog: slices.Clone(s.WinnerChatLog),
	}
}
