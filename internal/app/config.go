package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/jobgrid/internal/artifacts"
	"github.com/specialistvlad/jobgrid/internal/report"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	JobsPath string // .hcl, .yaml and .yml files

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	PollInterval time.Duration
	StrictGraph  bool
	KillOnAbort  bool
	Shell        string

	ReportPath        string
	ReportFormat      string
	SummaryPath       string
	GitHubAnnotations bool

	EventsURL      string
	EventsInsecure bool

	Artifacts  artifacts.Config
	HistoryDSN string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.JobsPath == "" {
		return nil, errors.New("JobsPath is a required configuration field and cannot be empty")
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.PollInterval < 0 {
		return nil, fmt.Errorf("poll interval must not be negative, got %s", cfg.PollInterval)
	}

	switch cfg.ReportFormat {
	case "", report.FormatMarkdown, report.FormatJSON, report.FormatTable:
	default:
		return nil, fmt.Errorf("invalid report format %q: must be 'markdown', 'json' or 'table'", cfg.ReportFormat)
	}

	if cfg.Artifacts.Enabled() {
		if err := cfg.Artifacts.Validate(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
