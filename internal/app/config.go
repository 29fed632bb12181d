package app

import (
	"errors"
	"fmt"
	"net/url"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DefinitionPath string // .hcl and .json pipeline definitions

	LogFormat       string
	LogLevel        string
	HealthcheckPort int

	// SessionDBPath selects a SQLite file for session state. Empty keeps
	// state in memory for the lifetime of the process.
	SessionDBPath string
	// SessionID resumes an earlier session stored in SessionDBPath. Its
	// state is kept when the app closes. Empty starts a throwaway session.
	SessionID string

	FeedURL                string
	FeedNamespace          string
	FeedInsecureSkipVerify bool

	// Visual prints definitions as positional graphs instead of a summary.
	Visual bool

	// InsertEdge, when set, splices a transformer named InsertName into the
	// edge with that id before the definitions are reported.
	InsertEdge      string
	InsertName      string
	InsertShortName string
}

// Serving reports whether the app keeps running after the definitions are
// reported.
func (c *Config) Serving() bool {
	return c.HealthcheckPort > 0 || c.FeedURL != ""
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DefinitionPath == "" {
		return nil, errors.New("DefinitionPath is a required configuration field and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("HealthcheckPort %d is out of range", cfg.HealthcheckPort)
	}
	if cfg.FeedURL != "" {
		u, err := url.Parse(cfg.FeedURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("FeedURL %q must be an absolute URL", cfg.FeedURL)
		}
	}
	if cfg.SessionID != "" && cfg.SessionDBPath == "" {
		return nil, errors.New("SessionID requires SessionDBPath")
	}
	if cfg.InsertEdge != "" && cfg.InsertName == "" {
		return nil, errors.New("InsertName is required when InsertEdge is set")
	}
	return &cfg, nil
}
