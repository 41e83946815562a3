package config

import "time"

// ExportConfig contains configuration for bulk export jobs and the registry
// sweep.
type ExportConfig struct {
	// Retention is how long a job record stays in the registry after creation.
	Retention time.Duration `env:"EXPORT_RETENTION" envDefault:"1h"`

	// SweepInterval is how often stale job records are removed.
	SweepInterval time.Duration `env:"EXPORT_SWEEP_INTERVAL" envDefault:"30m"`

	// FetchTimeout bounds each per-record gateway interaction.
	FetchTimeout time.Duration `env:"EXPORT_FETCH_TIMEOUT" envDefault:"60s"`

	// StreamInterval is the emission period of the progress push stream.
	StreamInterval time.Duration `env:"EXPORT_STREAM_INTERVAL" envDefault:"500ms"`
}

// Sanitize applies guardrails to export configuration values.
func (e *ExportConfig) Sanitize() {
	if e.Retention <= 0 {
		e.Retention = time.Hour
	}
	if e.SweepInterval <= 0 {
		e.SweepInterval = 30 * time.Minute
	}
	if e.FetchTimeout < time.Second {
		e.FetchTimeout = 60 * time.Second
	}
	if e.StreamInterval < 100*time.Millisecond {
		e.StreamInterval = 500 * time.Millisecond
	}
}
