package settings

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/env"
	"github.com/nantokaworks/chzzk-games/internal/game"
	"github.com/nantokaworks/chzzk-games/internal/game/vote"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"go.uber.org/zap"
)

// Setting は設定テーブルの1行。
type Setting struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// 設定の定義
var DefaultSettings = map[string]Setting{
	"VOTE_PREFIX": {
		Key: "VOTE_PREFIX", Value: vote.DefaultPrefix,
		Description: "Chat command prefix for casting a vote",
	},
	"DEFAULT_UNIT_AMOUNT": {
		Key: "DEFAULT_UNIT_AMOUNT", Value: "1000",
		Description: "Default donation amount per vote",
	},
	"REVEAL_DELAY_SECONDS": {
		Key: "REVEAL_DELAY_SECONDS", Value: "5",
		Description: "Delay between picking a winner and revealing it",
	},
	"SPIN_DURATION_SECONDS": {
		Key: "SPIN_DURATION_SECONDS", Value: "10",
		Description: "Roulette wheel spin duration",
	},
	"WINNER_CHAT_LOG_CAP": {
		Key: "WINNER_CHAT_LOG_CAP", Value: "50",
		Description: "Maximum retained winner chat messages",
	},
}

type SettingsManager struct {
	db *sql.DB
}

func NewSettingsManager(db *sql.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// Initialize は未登録のデフォルト設定をテーブルへ投入する。
func (m *SettingsManager) Initialize() error {
	for key, setting := range DefaultSettings {
		_, err := m.db.Exec(
			`INSERT OR IGNORE INTO settings (key, value, description) VALUES (?, ?, ?)`,
			key, setting.Value, setting.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}

// GetValue は設定値を返す。行が無ければデフォルト値。
func (m *SettingsManager) GetValue(key string) (string, error) {
	def, known := DefaultSettings[key]
	if !known {
		return "", fmt.Errorf("unknown setting key: %s", key)
	}

	var value string
	err := m.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def.Value, nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetValue は設定値を更新する。未知のキーは拒否。
func (m *SettingsManager) SetValue(key, value string) error {
	if _, known := DefaultSettings[key]; !known {
		return fmt.Errorf("unknown setting key: %s", key)
	}

	_, err := m.db.Exec(
		`INSERT INTO settings (key, value, description, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value, DefaultSettings[key].Description,
	)
	return err
}

// GetAll は全設定を返す。
func (m *SettingsManager) GetAll() ([]Setting, error) {
	rows, err := m.db.Query(`SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		var s Setting
		var description sql.NullString
		if err := rows.Scan(&s.Key, &s.Value, &description, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Description = description.String
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (m *SettingsManager) getInt(key string) (int, error) {
	raw, err := m.GetValue(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

// GameConfig は設定テーブル（と環境変数オーバーライド）からセッション
// 設定を組み立てる。読み取りに失敗したキーはデフォルトへ落ちる。
func (m *SettingsManager) GameConfig() game.Config {
	cfg := game.DefaultConfig()

	if prefix, err := m.GetValue("VOTE_PREFIX"); err == nil && prefix != "" {
		cfg.VotePrefix = prefix
	}
	if unit, err := m.getInt("DEFAULT_UNIT_AMOUNT"); err == nil && unit > 0 {
		cfg.DefaultUnitAmount = unit
	}
	if sec, err := m.getInt("REVEAL_DELAY_SECONDS"); err == nil && sec > 0 {
		cfg.RevealDelay = time.Duration(sec) * time.Second
	}
	if sec, err := m.getInt("SPIN_DURATION_SECONDS"); err == nil && sec > 0 {
		cfg.SpinDuration = time.Duration(sec) * time.Second
	}
	if cap, err := m.getInt("WINNER_CHAT_LOG_CAP"); err == nil && cap > 0 {
		cfg.WinnerChatLogCap = cap
	}

	// Development overrides win over the settings table.
	if env.Value.RevealDelaySeconds > 0 {
		cfg.RevealDelay = time.Duration(env.Value.RevealDelaySeconds) * time.Second
	}
	if env.Value.SpinDurationSeconds > 0 {
		cfg.SpinDuration = time.Duration(env.Value.SpinDurationSeconds) * time.Second
	}

	logger.Debug("Game config assembled",
		zap.String("vote_prefix", cfg.VotePrefix),
		zap.Duration("reveal_delay", cfg.RevealDelay),
		zap.Duration("spin_duration", cfg.SpinDuration))
	return cfg
}
