package paths

import (
	"os"
	"path/filepath"
)

const dataDirName = ".chzzk-games"

// GetDataDir はアプリのデータディレクトリを返す（~/.chzzk-games）。
func GetDataDir() string {
	if custom := os.Getenv("CHZZK_GAMES_DATA_DIR"); custom != "" {
		return custom
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dataDirName
	}
	return filepath.Join(home, dataDirName)
}

// GetDBPath はSQLiteデータベースファイルのパスを返す。
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "local.db")
}

// EnsureDataDirs はデータディレクトリを作成する。
func EnsureDataDirs() error {
	return os.MkdirAll(GetDataDir(), 0o755)
}
