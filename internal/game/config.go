package game

import (
	"time"

	"github.com/nantokaworks/chzzk-games/internal/game/vote"
)

// Config はセッション生成時に固定されるゲーム動作設定。
// 値は設定テーブル（internal/settings）から読み込まれる。
type Config struct {
	VotePrefix        string
	DefaultUnitAmount int
	RevealDelay       time.Duration
	SpinDuration      time.Duration
	WinnerChatLogCap  int
}

// DefaultConfig は設定テーブルが使えない場合のフォールバック。
func DefaultConfig() Config {
	return Config{
		VotePrefix:        vote.DefaultPrefix,
		DefaultUnitAmount: 1000,
		RevealDelay:       5 * time.Second,
		SpinDuration:      10 * time.Second,
		WinnerChatLogCap:  50,
	}
}

func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.VotePrefix == "" {
		c.VotePrefix = d.VotePrefix
	}
	if c.DefaultUnitAmount < 1 {
		c.DefaultUnitAmount = d.DefaultUnitAmount
	}
	if c.RevealDelay <= 0 {
		c.RevealDelay = d.RevealDelay
	}
	if c.SpinDuration <= 0 {
		c.SpinDuration = d.SpinDuration
	}
	if c.WinnerChatLogCap < 1 {
		c.WinnerChatLogCap = d.WinnerChatLogCap
	}
	return c
}
