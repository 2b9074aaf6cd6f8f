package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opik.config")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearOpikEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPIK_URL_OVERRIDE", "OPIK_API_KEY", "OPIK_WORKSPACE", "OPIK_PROJECT_NAME", "OPIK_TRACK_DISABLE"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearOpikEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.config"))
	if err != nil {
		t.Fatalf("absent config file must not fail: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.ProjectName != DefaultProjectName {
		t.Errorf("ProjectName = %q", cfg.ProjectName)
	}
	if cfg.Interval != DefaultInterval || cfg.SettleGrace != DefaultSettleGrace {
		t.Errorf("intervals = %v / %v", cfg.Interval, cfg.SettleGrace)
	}
	if cfg.FreshnessWindow != 24*time.Hour {
		t.Errorf("FreshnessWindow = %v", cfg.FreshnessWindow)
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize = %d", cfg.BatchSize)
	}
	if !cfg.Enabled {
		t.Error("collection should default to enabled")
	}
	if cfg.StatePath == "" {
		t.Error("state path should be resolved")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	clearOpikEnv(t)

	path := writeConfigFile(t, `
# shared SDK config
[opik]
url_override = https://example.com/opik/api/
api_key = file-key
workspace = my-ws
project_name = my-proj

[other]
api_key = should-be-ignored
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BaseURL != "https://example.com/opik/api" {
		t.Errorf("BaseURL = %q (trailing slash should be trimmed)", cfg.BaseURL)
	}
	if cfg.APIKey != "file-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Workspace != "my-ws" {
		t.Errorf("Workspace = %q", cfg.Workspace)
	}
	if cfg.ProjectName != "my-proj" {
		t.Errorf("ProjectName = %q", cfg.ProjectName)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	clearOpikEnv(t)
	path := writeConfigFile(t, `
[opik]
api_key = file-key
workspace = file-ws
`)
	t.Setenv("OPIK_API_KEY", "env-key")
	t.Setenv("OPIK_TRACK_DISABLE", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("env should beat file: APIKey = %q", cfg.APIKey)
	}
	if cfg.Workspace != "file-ws" {
		t.Errorf("file value without env override lost: %q", cfg.Workspace)
	}
	if cfg.Enabled {
		t.Error("OPIK_TRACK_DISABLE=true should disable collection")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  Config{Enabled: true, APIKey: "k", BaseURL: "https://x", BatchSize: 25},
		},
		{
			name:    "missing api key",
			cfg:     Config{Enabled: true, BaseURL: "https://x", BatchSize: 25},
			wantErr: true,
		},
		{
			name:    "bad batch size",
			cfg:     Config{Enabled: true, APIKey: "k", BaseURL: "https://x", BatchSize: 0},
			wantErr: true,
		},
		{
			name: "disabled skips checks",
			cfg:  Config{Enabled: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseINISection(t *testing.T) {
	data := `
; leading comment
[opik]
key1 = value1
KEY2=value2
# comment inside
broken line without equals

[next]
key1 = other
`
	values := parseINISection(data, "opik")
	if len(values) != 2 {
		t.Fatalf("values = %v", values)
	}
	if values["key1"] != "value1" {
		t.Errorf("key1 = %q", values["key1"])
	}
	if values["key2"] != "value2" {
		t.Errorf("keys should be lowercased: %v", values)
	}
}

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"true", "1", "TRUE", " t "} {
		if !parseBool(truthy) {
			t.Errorf("parseBool(%q) = false", truthy)
		}
	}
	for _, falsy := range []string{"false", "0", "", "yes"} {
		if parseBool(falsy) {
			t.Errorf("parseBool(%q) = true", falsy)
		}
	}
}
