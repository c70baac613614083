package localdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nantokaworks/chzzk-games/internal/game/roulette"
)

var (
	ErrPresetNotFound = errors.New("roulette preset not found")
	ErrInvalidPreset  = errors.New("invalid roulette preset")
)

// RoulettePreset は保存済みのホイール構成。名前で再利用する。
type RoulettePreset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Items     []roulette.Item `json:"items"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveRoulettePreset は新しいプリセットを保存する。
func SaveRoulettePreset(name string, items []roulette.Item) (*RoulettePreset, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(items) < 2 {
		return nil, ErrInvalidPreset
	}
	for _, item := range items {
		if strings.TrimSpace(item.Label) == "" || item.Weight <= 0 {
			return nil, ErrInvalidPreset
		}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate preset id: %w", err)
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preset items: %w", err)
	}

	now := time.Now()
	_, err = DBClient.Exec(
		`INSERT INTO roulette_presets (id, name, items_json, created_at) VALUES (?, ?, ?, ?)`,
		id, name, string(itemsJSON), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save preset: %w", err)
	}

	return &RoulettePreset{ID: id, Name: name, Items: items, CreatedAt: now}, nil
}

// GetRoulettePreset はIDでプリセットを取得する。
func GetRoulettePreset(id string) (*RoulettePreset, error) {
	row := DBClient.QueryRow(
		`SELECT id, name, items_json, created_at FROM roulette_presets WHERE id = ?`, id)

	preset, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPresetNotFound
	}
	return preset, err
}

// ListRoulettePresets は全プリセットを作成順で返す。
func ListRoulettePresets() ([]RoulettePreset, error) {
	rows, err := DBClient.Query(
		`SELECT id, name, items_json, created_at FROM roulette_presets ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presets := []RoulettePreset{}
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *preset)
	}
	return presets, rows.Err()
}

// DeleteRoulettePreset はプリセットを削除する。
func DeleteRoulettePreset(id string) error {
	res, err := DBClient.Exec(`DELETE FROM roulette_presets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPresetNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (*RoulettePreset, error) {
	var (
		preset    RoulettePreset
		itemsJSON string
	)
	if err := row.Scan(&preset.ID, &preset.Name, &itemsJSON, &preset.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &preset.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preset items: %w", err)
	}
	return &preset, nil
}
