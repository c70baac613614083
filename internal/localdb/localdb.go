package localdb

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

var DBClient *sql.DB

// SetupDB はSQLiteを開いてスキーマを整える。二重呼び出しは既存接続を返す。
func SetupDB(dbPath string) (*sql.DB, error) {
	if DBClient != nil {
		return DBClient, nil
	}

	// WALモードとBusy Timeoutを設定（Race Condition対策）
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLiteは単一ライターなので接続プールを1に制限
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		description TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS roulette_presets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		items_json TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, err
	}

	DBClient = db
	return db, nil
}

// GetDB は初期化済みのDBを返す。未初期化ならnil。
func GetDB() *sql.DB {
	return DBClient
}

// CloseDB closes the database connection.
func CloseDB() error {
	if DBClient == nil {
		return nil
	}
	err := DBClient.Close()
	DBClient = nil
	return err
}
