package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu  sync.Mutex
	log *zap.Logger = zap.NewNop()
)

// Init はグローバルロガーを初期化する。debug=true で開発用フォーマットになる。
func Init(debug bool) {
	mu.Lock()
	defer mu.Unlock()

	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Build only fails on invalid config, which both presets are not.
		panic(err)
	}
	log = l
}

// Sync flushes buffered log entries. Call via defer from main.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = log.Sync()
}

func Debug(msg string, fields ...zap.Field) { log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
