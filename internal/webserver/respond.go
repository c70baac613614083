package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/game/draw"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
	"github.com/nantokaworks/chzzk-games/internal/session"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"go.uber.org/zap"
)

const defaultChannelID = "default"

func channelOrDefault(channelID string) string {
	if channelID == "" {
		return defaultChannelID
	}
	return channelID
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeSnapshot(w http.ResponseWriter, snap game.Snapshot) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"snapshot": snap,
	})
}

// writeCommandError はエンジンのエラー種別をHTTPステータスへ写す。
// 不正遷移は409、それ以外の拒否は400。actorは落ちていないので5xxは
// マーシャル/内部異常のみ。
func writeCommandError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, draw.ErrInvalidTransition),
		errors.Is(err, vote.ErrInvalidTransition),
		errors.Is(err, roulette.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, draw.ErrEmptyPool),
		errors.Is(err, vote.ErrEmptyPool),
		errors.Is(err, vote.ErrInsufficientOptions),
		errors.Is(err, vote.ErrInvalidUnitAmount),
		errors.Is(err, vote.ErrUnknownOption),
		errors.Is(err, roulette.ErrInsufficientItems),
		errors.Is(err, roulette.ErrInvalidItem):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
	default:
		logger.Error("Command failed", zap.Error(err))
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   err.Error(),
	})
}

// decodeBody decodes a JSON request body, rejecting unknown fields so
// a typoed command argument fails loudly instead of silently no-oping.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "invalid request body: " + err.Error(),
		})
		return false
	}
	return true
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
