package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"levelbook/engine"
	"levelbook/logging"
	"levelbook/orderbook"
)

// Config aggregates the configuration of every package.
type Config struct {
	Logging logging.Config   `yaml:"logging"`
	Book    orderbook.Config `yaml:"book"`
	Engine  engine.Config    `yaml:"engine"`
}

// NewDefaultConfig returns the configuration used when no file is given.
func NewDefaultConfig() Config {
	return Config{
		Logging: logging.NewDefaultConfig(),
		Book:    orderbook.NewDefaultConfig(),
		Engine:  engine.NewDefaultConfig(),
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return errors.Wrap(err, "logging")
	}
	if err := c.Book.Validate(); err != nil {
		return errors.Wrap(err, "book")
	}
	if err := c.Engine.Validate(); err != nil {
		return errors.Wrap(err, "engine")
	}
	return nil
}

// BookOptions translates the book section into order book options.
func (c Config) BookOptions() ([]orderbook.Option, error) {
	indexType, err := orderbook.ParsePriceIndexType(c.Book.PriceIndex)
	if err != nil {
		return nil, err
	}
	return []orderbook.Option{orderbook.WithPriceIndex(indexType)}, nil
}
