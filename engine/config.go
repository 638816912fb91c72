package engine

import "github.com/pkg/errors"

// Config holds the per-book engine settings.
type Config struct {
	// QueueSize bounds the number of pending updates per book.
	QueueSize int `yaml:"queue_size"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		QueueSize: 65536,
	}
}

func (c Config) Validate() error {
	if c.QueueSize <= 0 {
		return errors.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	return nil
}
