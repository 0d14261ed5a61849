package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ConfigPath is the variable which stores the config path command line parameter
	ConfigPath string
)

// Backend names accepted in Config.Backend
const (
	BackendBitblast = "bitblast"
	BackendSMTLib   = "smtlib"
	BackendZ3       = "z3"
)

// Config stores the config for the tool
type Config struct {
	// Backend selects the engine adapter, one of bitblast|smtlib|z3
	Backend string `json:"backend"`
	// ProduceModels enables get-value after a sat check
	ProduceModels bool `json:"produce_models"`
	// TimeoutMS bounds a single check-sat, 0 means no bound
	TimeoutMS int `json:"timeout_ms"`
	// Solver configures the external process used by the smtlib backend
	Solver SolverConfig `json:"solver"`
	// UninterpretedWidth is the number of bits the bitblast backend uses per
	// element of an uninterpreted sort
	UninterpretedWidth uint32 `json:"uninterpreted_width"`
	// APIServerAddr address of the APIServer
	APIServerAddr string `json:"server_addr"`
	// LogConfig configuration for logging
	LogConfig LogConfig `json:"log"`
}

// SolverConfig stores the command line of an external SMT-LIB solver
type SolverConfig struct {
	// Command is the executable followed by its arguments
	Command []string `json:"command"`
}

// LogConfig stores the config for logging purpose
type LogConfig struct {
	// Path of the log file
	Path string `json:"path"`
	// Format to log. Only `json` is currently supported
	Format string `json:"format"`
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string `json:"level"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Backend:            BackendBitblast,
		ProduceModels:      true,
		TimeoutMS:          0,
		Solver:             SolverConfig{Command: []string{"z3", "-in", "-smt2"}},
		UninterpretedWidth: 16,
		APIServerAddr:      "0.0.0.0:7074",
		LogConfig: LogConfig{
			Path:   "",
			Format: "json",
			Level:  "info",
		},
	}
}

// Timeout returns TimeoutMS as a duration
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Validate checks the fields that have a closed set of values
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBitblast, BackendSMTLib, BackendZ3:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Backend == BackendSMTLib && len(c.Solver.Command) == 0 {
		return fmt.Errorf("smtlib backend needs a solver command")
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("negative timeout %d", c.TimeoutMS)
	}
	if c.UninterpretedWidth == 0 || c.UninterpretedWidth > 32 {
		return fmt.Errorf("uninterpreted width must be in 1..32, got %d", c.UninterpretedWidth)
	}
	return nil
}

// ParseConfig parses config from the specificied file. Fields absent from the
// file keep their defaults.
func ParseConfig(path string) (*Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	defaultConfig := DefaultConfig()
	err = json.Unmarshal(bytes, defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %s", err)
	}
	if err := defaultConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %s", err)
	}
	return defaultConfig, nil
}

// Load parses the config at path, falling back to the defaults when the
// file does not exist
func Load(path string) (*Config, error) {
	c, err := ParseConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return c, err
}
