// Package logging builds the zap logger used across kvcrank.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to w. level is one of debug, info, warn or
// error; json selects the JSON encoder instead of the console one.
func New(w io.Writer, level string, json bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if json {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// FailureLogger reports worker failures through a zap logger.
type FailureLogger struct {
	log *zap.Logger
}

// NewFailureLogger wraps log. A nil logger discards everything.
func NewFailureLogger(log *zap.Logger) *FailureLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &FailureLogger{log: log.Named("worker")}
}

func (l *FailureLogger) LogFailure(err error) {
	if err == nil {
		return
	}
	l.log.Warn("worker failed", zap.Error(err))
}
