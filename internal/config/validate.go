package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Store.UpdatesPath == "" {
		return errors.New("store.updates_path is required")
	}
	if c.Store.CheckpointPath == "" {
		return errors.New("store.checkpoint_path is required")
	}
	if c.Store.Exchange == "" {
		return errors.New("store.exchange is required")
	}
	if c.Store.Concurrency < 1 {
		return errors.New("store.concurrency must be >= 1")
	}

	if c.Cadence.EveryUS != nil && *c.Cadence.EveryUS <= 0 {
		return errors.New("cadence.every_us must be > 0 when set")
	}
	if c.Cadence.EveryUpdates != nil && *c.Cadence.EveryUpdates == 0 {
		return errors.New("cadence.every_updates must be > 0 when set")
	}

	if err := c.DenseBook.validate(); err != nil {
		return err
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (d DenseBookConfig) validate() error {
	if !d.Enabled() {
		return nil
	}
	if d.MaxPriceInt == 0 || d.TickSizeInt == 0 {
		return errors.New("dense_book.min_price, max_price, and tick_size must be set together")
	}
	if d.TickSizeInt <= 0 {
		return errors.New("dense_book.tick_size must be > 0")
	}
	if d.MaxPriceInt < d.MinPriceInt {
		return errors.New("dense_book.max_price must be >= min_price")
	}
	if (d.MaxPriceInt-d.MinPriceInt)%d.TickSizeInt != 0 {
		return errors.New("dense_book.max_price - min_price must be a multiple of tick_size")
	}
	return nil
}
