package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown subcommand",
			args:    []string{"definitely-not-a-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rootCmd.SetArgs(tt.args)
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)

			err := rootCmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("OPIK_API_KEY", "")
	tmp := t.TempDir()

	configPath = filepath.Join(tmp, "absent.config")
	storagePath = filepath.Join(tmp, "custom.vscdb")
	statePath = filepath.Join(tmp, "custom-state.yaml")
	t.Cleanup(func() {
		configPath, storagePath, statePath = "", "", ""
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.StoragePath != storagePath {
		t.Errorf("StoragePath = %q, want flag override", cfg.StoragePath)
	}
	if cfg.StatePath != statePath {
		t.Errorf("StatePath = %q, want flag override", cfg.StatePath)
	}
}
