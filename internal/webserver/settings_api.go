package webserver

import (
	"net/http"

	"github.com/nantokaworks/chzzk-games/internal/localdb"
	"github.com/nantokaworks/chzzk-games/internal/settings"
)

type settingUpdateRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// handleSettings は設定の一覧と更新。更新は以後に作られるセッションに
// 効く（走行中のチャンネルの設定は固定のまま）。
func handleSettings(w http.ResponseWriter, r *http.Request) {
	manager := settings.NewSettingsManager(localdb.GetDB())

	switch r.Method {
	case http.MethodGet:
		all, err := manager.GetAll()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "settings": all})

	case http.MethodPut:
		var req settingUpdateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := manager.SetValue(req.Key, req.Value); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
