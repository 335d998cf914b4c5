package config

// Default values for optional configuration fields.
const (
	DefaultStoreConcurrency = 4
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
)

func (c *Config) applyDefaults() {
	if c.Store.Concurrency == 0 {
		c.Store.Concurrency = DefaultStoreConcurrency
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
