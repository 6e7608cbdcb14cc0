// Package zap adapts go.uber.org/zap to the logger.Logger interface
// used by the rest of this repository.
package zap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/retorded/chordring/internal/config"
	"github.com/retorded/chordring/internal/logger"
)

// New builds a *zap.Logger from the node's logging configuration.
// Encoding is "console" or "json"; an empty File path keeps output on
// stdout, otherwise output rotates through lumberjack.
func New(cfg config.LoggerConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.NameKey = "component"

	var encoder zapcore.Encoder
	if cfg.Encoding == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	if cfg.File != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	} else {
		ws = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, ws, level)
	return zap.New(core, zap.AddCaller()), nil
}

// NewAdapter wraps a *zap.Logger as a logger.Logger, skipping one
// caller frame so that log lines report the call site rather than
// this adapter.
func NewAdapter(l *zap.Logger) logger.Logger {
	return adapter{l: l.WithOptions(zap.AddCallerSkip(1))}
}

type adapter struct {
	l *zap.Logger
}

func (a adapter) Named(name string) logger.Logger {
	return adapter{l: a.l.Named(name)}
}

func (a adapter) With(fields ...logger.Field) logger.Logger {
	return adapter{l: a.l.With(toZap(fields)...)}
}

func (a adapter) Debug(msg string, fields ...logger.Field) { a.l.Debug(msg, toZap(fields)...) }
func (a adapter) Info(msg string, fields ...logger.Field)  { a.l.Info(msg, toZap(fields)...) }
func (a adapter) Warn(msg string, fields ...logger.Field)  { a.l.Warn(msg, toZap(fields)...) }
func (a adapter) Error(msg string, fields ...logger.Field) { a.l.Error(msg, toZap(fields)...) }

func toZap(fields []logger.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Val))
	}
	return out
}
