package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger settings.
type Config struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Encoding is either json or console.
	Encoding string `yaml:"encoding"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:    "info",
		Encoding: "console",
	}
}

// Validate checks the level and encoding without building a logger.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	switch c.Encoding {
	case "", "console", "json":
		return nil
	default:
		return errors.Errorf("invalid log encoding %q", c.Encoding)
	}
}
