package webserver

import (
	"errors"
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
	"github.com/nantokaworks/chzzk-games/internal/localdb"
)

type rouletteUpdateRequest struct {
	ChannelID string          `json:"channel_id"`
	Items     []roulette.Item `json:"items"`
	PresetID  string          `json:"preset_id,omitempty"`
}

type presetSaveRequest struct {
	Name  string          `json:"name"`
	Items []roulette.Item `json:"items"`
}

// handleRouletteUpdate はホイール構成を差し替える。preset_id指定時は
// 保存済みプリセットを読み込む。
func handleRouletteUpdate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req rouletteUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := req.Items
	if req.PresetID != "" {
		preset, err := localdb.GetRoulettePreset(req.PresetID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, localdb.ErrPresetNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
			return
		}
		items = preset.Items
	}

	applyCommand(w, r, req.ChannelID, game.UpdateRoulette{Items: items})
}

// handleRouletteSpin はホイールを回す
func handleRouletteSpin(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.SpinRoulette{})
}

// handleRouletteReset は当選をクリアする（項目と回転角は保持）
func handleRouletteReset(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	var req channelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	applyCommand(w, r, req.ChannelID, game.ResetRoulette{})
}

// handleRoulettePresets はプリセットの一覧・保存・削除
func handleRoulettePresets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		presets, err := localdb.ListRoulettePresets()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "presets": presets})

	case http.MethodPost:
		var req presetSaveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		preset, err := localdb.SaveRoulettePreset(req.Name, req.Items)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, localdb.ErrInvalidPreset) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "preset": preset})

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if err := localdb.DeleteRoulettePreset(id); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, localdb.ErrPresetNotFound) {
				status = http.StatusNotFound
			}
			writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
