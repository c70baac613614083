package webserver

import (
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/game"
)

type drawStartRequest struct {
	ChannelID              string `json:"channel_id"`
	Keyword                string `json:"keyword"`
	SubscriberOnly         bool   `json:"subscriber_only"`
	ExcludePreviousWinners bool   `json:"exclude_previous_winners"`
	Duration               int    `json:"duration"`
}

type drawPickRequest struct {
	ChannelID string `json:"channel_id"`
	Count     int    `json:"count"`
}

type channelRequest struct {
	ChannelID string `json:"channel_id"`
}

// handleDrawStart は参加者募集を開始する
func handleDrawStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req drawStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.StartDraw{
		Keyword:                req.Keyword,
		SubscriberOnly:         req.SubscriberOnly,
		ExcludePreviousWinners: req.ExcludePreviousWinners,
		Duration:               req.Duration,
	})
}

// handleDrawStop は募集を締め切り抽選可能にする
func handleDrawStop(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.StopDraw{})
}

// handleDrawPick は当選者を選出する（確定はリビール遅延後）
func handleDrawPick(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req drawPickRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.PickDrawWinners{Count: req.Count})
}

// handleDrawReset は抽選を初期状態へ戻す（当選履歴は残る）
func handleDrawReset(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.ResetDraw{})
}

// handleDrawClearHistory は当選履歴を破棄する
func handleDrawClearHistory(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.ClearDrawHistory{})
}

func applyCommand(w http.ResponseWriter, r *http.Request, channelID string, cmd game.Command) {
	actor := sessions.Get(channelOrDefault(channelID))
	snap, err := actor.Do(r.Context(), cmd)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeSnapshot(w, snap)
}
