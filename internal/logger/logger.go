// Package logger owns the process-wide structured logger. Commands call
// Init once at startup; packages receive a *zap.SugaredLogger or fall
// back to S().
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"grid-hands/internal/config"
)

var sugared *zap.SugaredLogger

func Init(cfg config.LogConfig) *zap.SugaredLogger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if cfg.Path != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(rotating), level))
	}
	if cfg.Console || len(cores) == 0 {
		consoleConfig := zap.NewProductionEncoderConfig()
		consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEncoder := zapcore.NewConsoleEncoder(consoleConfig)
		cores = append(cores, zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	sugared = logger.Sugar()
	return sugared
}

// S returns the global logger, or a development fallback before Init.
func S() *zap.SugaredLogger {
	if sugared == nil {
		logger, _ := zap.NewDevelopment()
		return logger.Sugar()
	}
	return sugared
}
