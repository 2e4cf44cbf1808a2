package logger

import (
	"go.uber.org/zap"
)

// Log is a no-op logger until Init is called.
var Log = zap.NewNop().Sugar()

func Init() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// InitDevelopment installs a human readable logger for local runs.
func InitDevelopment() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
