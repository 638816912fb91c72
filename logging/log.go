package logging

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger and keeps the level it was built with
// so hot paths can skip building fields when debug is off.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
	name  string
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, _ := zapcore.ParseLevel(cfg.Level)
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "console"
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zcfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	zl, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	return &Logger{Logger: zl, level: zcfg.Level}, nil
}

// NewTestLogger returns a logger that discards everything.
func NewTestLogger() *Logger {
	return NewNop()
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger: zap.NewNop(),
		level:  zap.NewAtomicLevelAt(zapcore.FatalLevel),
	}
}

// Named adds a sub-scope to the logger's name.
func (log *Logger) Named(name string) *Logger {
	newName := name
	if log.name != "" {
		newName = fmt.Sprintf("%s.%s", log.name, name)
	}
	return &Logger{
		Logger: log.Logger.Named(name),
		level:  log.level,
		name:   newName,
	}
}

// With returns a child logger carrying the given fields.
func (log *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{
		Logger: log.Logger.With(fields...),
		level:  log.level,
		name:   log.name,
	}
}

func (log *Logger) GetName() string {
	return log.name
}

// IsDebug reports whether debug entries would be written.
func (log *Logger) IsDebug() bool {
	return log.level.Enabled(zapcore.DebugLevel)
}

// SetLevel changes the level of this logger and every logger derived from it.
func (log *Logger) SetLevel(level zapcore.Level) {
	log.level.SetLevel(level)
}

// AtExit flushes buffered entries. Call it before the process exits.
func (log *Logger) AtExit() {
	if log.Logger != nil {
		_ = log.Logger.Sync()
	}
}
