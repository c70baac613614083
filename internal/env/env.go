package env

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"go.uber.org/zap"
)

// Env はプロセス全体の環境設定。LoadEnv後にValue経由で参照する。
type Env struct {
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`
	DebugMode  bool   `envconfig:"DEBUG_MODE" default:"false"`
	DBPath     string `envconfig:"DB_PATH" default:""`

	// Timing overrides, mainly for development. Zero means use the
	// value from the settings table.
	RevealDelaySeconds  int `envconfig:"REVEAL_DELAY_SECONDS" default:"0"`
	SpinDurationSeconds int `envconfig:"SPIN_DURATION_SECONDS" default:"0"`
}

var Value Env

// LoadEnv は.envとプロセス環境変数からValueを組み立てる。
func LoadEnv() {
	// .env is optional; a missing file is the normal production case.
	if err := godotenv.Load(); err == nil {
		logger.Debug("Loaded .env file")
	}

	if err := envconfig.Process("", &Value); err != nil {
		logger.Fatal("Failed to parse environment", zap.Error(err))
	}
}
