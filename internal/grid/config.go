package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid grid config")

// Config holds the grid settings shared by every widget on a board.
type Config struct {
	Columns      int     `yaml:"columns" json:"columns"`
	Gap          float64 `yaml:"gap" json:"gap"`
	MinRowHeight float64 `yaml:"min_row_height" json:"minRowHeight"`
	MinRows      int     `yaml:"min_rows" json:"minRows"`
	ChromeHeight float64 `yaml:"chrome_height" json:"chromeHeight"`
}

// DefaultConfig returns a 12-column grid with a 16px gap.
func DefaultConfig() Config {
	return Config{
		Columns:      12,
		Gap:          16,
		MinRowHeight: 60,
		MinRows:      6,
		ChromeHeight: 0,
	}
}

// Validate rejects configurations the engine cannot operate on.
func (c Config) Validate() error {
	switch {
	case c.Columns < 1:
		return fmt.Errorf("columns must be >= 1, got %d: %w", c.Columns, ErrInvalidConfig)
	case c.Gap < 0:
		return fmt.Errorf("gap must be >= 0, got %g: %w", c.Gap, ErrInvalidConfig)
	case c.MinRowHeight <= 0:
		return fmt.Errorf("min_row_height must be > 0, got %g: %w", c.MinRowHeight, ErrInvalidConfig)
	case c.MinRows < 1:
		return fmt.Errorf("min_rows must be >= 1, got %d: %w", c.MinRows, ErrInvalidConfig)
	case c.ChromeHeight < 0:
		return fmt.Errorf("chrome_height must be >= 0, got %g: %w", c.ChromeHeight, ErrInvalidConfig)
	}
	return nil
}
