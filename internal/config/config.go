package config

// Config is the root configuration for one replay engine invocation
// (a cmd/l2replay run, or any embedder of internal/facade).
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Cadence   CadenceConfig   `yaml:"cadence"`
	DenseBook DenseBookConfig `yaml:"dense_book"`
	Replay    ReplayConfig    `yaml:"replay"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig locates the partitioned Parquet tables and, optionally, the
// Postgres catalog that accelerates lookups against them.
type StoreConfig struct {
	UpdatesPath    string `yaml:"updates_path"`
	CheckpointPath string `yaml:"checkpoint_path"`
	Exchange       string `yaml:"exchange"`
	CatalogDSN     string `yaml:"catalog_dsn"`
	Concurrency    int    `yaml:"concurrency"`
}

// CadenceConfig controls how often ReplayBetween and BuildStateCheckpoints
// emit a checkpoint row, independent of any snapshot reset.
type CadenceConfig struct {
	EveryUS      *int64  `yaml:"every_us"`
	EveryUpdates *uint64 `yaml:"every_updates"`
}

// DenseBookConfig switches the book representation from the default
// sparse map to a fixed-range array. Setting any of the three fields
// enables the dense book; MaxPrice and TickSize must then both be
// non-zero, while MinPrice may be 0. Leaving all three zero keeps the
// sparse book.
type DenseBookConfig struct {
	MinPriceInt int64 `yaml:"min_price"`
	MaxPriceInt int64 `yaml:"max_price"`
	TickSizeInt int64 `yaml:"tick_size"`
}

// Enabled reports whether a dense book range was configured.
func (d DenseBookConfig) Enabled() bool {
	return d.MinPriceInt != 0 || d.MaxPriceInt != 0 || d.TickSizeInt != 0
}

// ReplayConfig controls the replay driver's own behavior, independent of
// where its rows come from.
type ReplayConfig struct {
	ValidateMonotonic bool `yaml:"validate_monotonic"`
}

// MetricsConfig holds the diagnostics HTTP listener settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
