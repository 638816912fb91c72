package orderbook

import "github.com/pkg/errors"

// Config holds the book settings.
type Config struct {
	// PriceIndex selects the ordered price index: rbtree, btree or list.
	PriceIndex string `yaml:"price_index"`
	// PriceDecimals is the number of decimals one price tick represents.
	PriceDecimals int32 `yaml:"price_decimals"`
}

// NewDefaultConfig creates an instance of the package specific configuration.
func NewDefaultConfig() Config {
	return Config{
		PriceIndex:    RedBlackTreeType.String(),
		PriceDecimals: 2,
	}
}

func (c Config) Validate() error {
	if _, err := ParsePriceIndexType(c.PriceIndex); err != nil {
		return err
	}
	if c.PriceDecimals < 0 || c.PriceDecimals > 18 {
		return errors.Errorf("price_decimals must be within [0, 18], got %d", c.PriceDecimals)
	}
	return nil
}
