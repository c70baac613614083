package webserver

import (
	"context"
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/types"
)

type inboundEvent struct {
	ChannelID      string     `json:"channel_id"`
	Nickname       string     `json:"nickname"`
	UserIDHash     string     `json:"user_id_hash"`
	Role           types.Role `json:"role"`
	Message        string     `json:"message"`
	DonationAmount int        `json:"donation_amount"`
}

// handleChatEvent injects one normalized chat/donation event. This is
// the seam a platform chat adapter (or the test-server generator)
// feeds; malformed events are dropped silently like any chat noise.
func handleChatEvent(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req inboundEvent
	if !decodeBody(w, r, &req) {
		return
	}

	ev := types.Event{
		Nickname:       req.Nickname,
		UserIDHash:     req.UserIDHash,
		Role:           req.Role,
		Message:        req.Message,
		DonationAmount: req.DonationAmount,
	}
	sessions.Ingest(channelOrDefault(req.ChannelID), ev)

	writeJSON(w, http.StatusAccepted, map[string]any{"success": true})
}

// handleDonationEvent は金額付きイベント専用の取り込み口。金額のない
// ものはドネーションとして扱えないので弾く。
func handleDonationEvent(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req inboundEvent
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DonationAmount < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "donation event needs a positive donation_amount",
		})
		return
	}

	sessions.Ingest(channelOrDefault(req.ChannelID), types.Event{
		Nickname:       req.Nickname,
		UserIDHash:     req.UserIDHash,
		Role:           req.Role,
		Message:        req.Message,
		DonationAmount: req.DonationAmount,
	})

	writeJSON(w, http.StatusAccepted, map[string]any{"success": true})
}

// handleSnapshot は現在のスナップショットを返す（ポーリング用）
func handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	channelID := channelOrDefault(r.URL.Query().Get("channel"))
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	snap, err := sessions.Get(channelID).Snapshot(ctx)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeSnapshot(w, snap)
}
