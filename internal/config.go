package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Defaults for the tuning knobs. All heuristics here are configuration, not
// correctness requirements.
const (
	DefaultBaseURL         = "https://www.comet.com/opik/api"
	DefaultProjectName     = "cursor"
	DefaultWorkspace       = "default"
	DefaultInterval        = 60 * time.Second
	DefaultSettleGrace     = 30 * time.Second
	DefaultFreshnessWindow = 24 * time.Hour
	DefaultBatchSize       = 25
	DefaultUploadTimeout   = 30 * time.Second
)

// Config is the collector's full configuration surface.
type Config struct {
	BaseURL     string
	APIKey      string
	Workspace   string
	ProjectName string
	Enabled     bool

	Interval        time.Duration
	SettleGrace     time.Duration
	FreshnessWindow time.Duration
	BatchSize       int
	UploadTimeout   time.Duration

	StoragePath string // path to Cursor's state.vscdb
	StatePath   string // path to the collector's own state file
}

// LoadConfig resolves configuration from three layers, lowest priority
// first: built-in defaults, the ~/.opik.config file, then environment
// variables. configPath overrides the default config file location; an
// absent file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		BaseURL:         DefaultBaseURL,
		Workspace:       DefaultWorkspace,
		ProjectName:     DefaultProjectName,
		Enabled:         true,
		Interval:        DefaultInterval,
		SettleGrace:     DefaultSettleGrace,
		FreshnessWindow: DefaultFreshnessWindow,
		BatchSize:       DefaultBatchSize,
		UploadTimeout:   DefaultUploadTimeout,
	}

	if configPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configPath = filepath.Join(home, ".opik.config")
		}
	}
	if configPath != "" {
		if err := cfg.applyFile(configPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if cfg.StoragePath == "" {
		cfg.StoragePath = DefaultStoragePath()
	}
	if cfg.StatePath == "" {
		statePath, err := DefaultStatePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve state path: %w", err)
		}
		cfg.StatePath = statePath
	}

	return cfg, nil
}

// Validate checks the fields required before any upload can happen.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.APIKey == "" {
		return fmt.Errorf("missing API key (set OPIK_API_KEY or api_key in ~/.opik.config)")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("missing API base URL")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}

// applyFile layers in values from an INI-style key=value file with an [opik]
// section, the format the Opik SDKs share.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	for key, value := range parseINISection(string(data), "opik") {
		switch key {
		case "url_override":
			c.BaseURL = strings.TrimSuffix(value, "/")
		case "api_key":
			c.APIKey = value
		case "workspace":
			c.Workspace = value
		case "project_name":
			c.ProjectName = value
		case "track_disable":
			c.Enabled = !parseBool(value)
		}
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPIK_URL_OVERRIDE"); v != "" {
		c.BaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("OPIK_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("OPIK_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("OPIK_PROJECT_NAME"); v != "" {
		c.ProjectName = v
	}
	if v := os.Getenv("OPIK_TRACK_DISABLE"); v != "" {
		c.Enabled = !parseBool(v)
	}
}

// parseINISection extracts key=value pairs from one section of an INI-style
// document. Keys are lowercased; comments (# and ;) and blank lines are
// ignored.
func parseINISection(data, section string) map[string]string {
	values := make(map[string]string)
	inSection := false

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inSection = strings.EqualFold(strings.Trim(line, "[]"), section)
			continue
		}
		if !inSection {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}

	return values
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// DefaultStoragePath returns the platform location of Cursor's global
// storage database.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Cursor", "User", "globalStorage", "state.vscdb")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Cursor", "User", "globalStorage", "state.vscdb")
		}
		return filepath.Join(home, "AppData", "Roaming", "Cursor", "User", "globalStorage", "state.vscdb")
	default:
		return filepath.Join(home, ".config", "Cursor", "User", "globalStorage", "state.vscdb")
	}
}
