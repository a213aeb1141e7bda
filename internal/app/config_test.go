package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	valid := Config{
		ProjectPaths:    []string{"project.hcl"},
		RemoteURL:       "http://localhost:8080/api",
		Timeout:         10 * time.Second,
		LinkPolicy:      "strict",
		LogFormat:       "json",
		LogLevel:        "debug",
		HealthcheckPort: 8081,
		SnapshotDir:     "/tmp/snapshots",
		Restore:         true,
	}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "defaults are allowed", mutate: func(c *Config) {
			*c = Config{ProjectPaths: []string{"dir"}}
		}},
		{name: "no project path", mutate: func(c *Config) { c.ProjectPaths = nil }, wantErr: "ProjectPaths is required"},
		{name: "blank project path", mutate: func(c *Config) { c.ProjectPaths = []string{""} }, wantErr: "ProjectPaths[0] is required"},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: "LogFormat must be one of [text json]"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "trace" }, wantErr: "LogLevel must be one of"},
		{name: "bad link policy", mutate: func(c *Config) { c.LinkPolicy = "lenient" }, wantErr: "LinkPolicy must be one of"},
		{name: "bad format", mutate: func(c *Config) { c.Format = "toml" }, wantErr: "Format must be one of"},
		{name: "relative remote", mutate: func(c *Config) { c.RemoteURL = "localhost" }, wantErr: "RemoteURL must be an absolute URL"},
		{name: "port out of range", mutate: func(c *Config) { c.HealthcheckPort = 70000 }, wantErr: "HealthcheckPort"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: "Timeout"},
		{name: "restore without snapshots", mutate: func(c *Config) { c.SnapshotDir = "" }, wantErr: "Restore requires SnapshotDir"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			got, err := NewConfig(cfg)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, cfg, *got)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Nil(t, got)
		})
	}
}
