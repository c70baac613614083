package webserver

import (
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
)

type voteStartRequest struct {
	ChannelID     string    `json:"channel_id"`
	Title         string    `json:"title"`
	Mode          vote.Mode `json:"mode"`
	Options       []string  `json:"options"`
	AllowMultiple bool      `json:"allow_multiple"`
	UnitAmount    int       `json:"unit_amount"`
	Duration      int       `json:"duration"`
}

type votePickRequest struct {
	ChannelID      string `json:"channel_id"`
	OptionID       int    `json:"option_id"`
	SubscriberOnly bool   `json:"subscriber_only"`
}

type voteTransferRequest struct {
	ChannelID   string `json:"channel_id"`
	IncludeZero bool   `json:"include_zero"`
}

// handleVoteStart は投票を開始する
func handleVoteStart(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req voteStartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mode := req.Mode
	if mode == "" {
		mode = vote.ModeNumeric
	}

	applyCommand(w, r, req.ChannelID, game.StartVote{
		Title:         req.Title,
		Mode:          mode,
		Options:       req.Options,
		AllowMultiple: req.AllowMultiple,
		UnitAmount:    req.UnitAmount,
		Duration:      req.Duration,
	})
}

// handleVoteEnd は集計を締め切る
func handleVoteEnd(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.EndVote{})
}

// handleVotePick は指定選択肢の投票者から当選者を選出する
func handleVotePick(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req votePickRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.PickVoteWinner{
		OptionID:       req.OptionID,
		SubscriberOnly: req.SubscriberOnly,
	})
}

// handleVoteReset は投票を破棄して初期状態へ戻す
func handleVoteReset(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.ResetVote{})
}

// handleVoteTransfer は現在の得票をルーレット項目へ変換する
func handleVoteTransfer(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req voteTransferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.TransferVoteToRoulette{IncludeZero: req.IncludeZero})
}
