package config

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.archlinux.org/mirrors/status/json/", cfg.SourceURL)
	assert.Equal(t, "community", cfg.TargetRepo)
	assert.Equal(t, 10, cfg.Mirrors)
	assert.Equal(t, 100, cfg.MaxCheck)
	assert.Equal(t, 5, cfg.Threads)
	assert.Empty(t, cfg.OutputFile)
	assert.Empty(t, cfg.Exclude)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `
source_url: "https://mirrors.example.org/status/json/"
target_repo: core
mirrors: 5
max_check: 0
threads: 8
output_file: /etc/pacman.d/mirrorlist
stats_file: /var/log/pacmirror/stats.csv
history_db: /var/lib/pacmirror/history.db
exclude:
  - "country = SomeCountry"
  - "!domain=keep.this.mirror"
exclude_from: /etc/pacmirror/excluded.conf
`
	require.NoError(t, afero.WriteFile(fs, "/etc/pacmirror/pacmirror.yaml", []byte(content), 0644))

	cfg, err := Load(fs, "/etc/pacmirror/pacmirror.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://mirrors.example.org/status/json/", cfg.SourceURL)
	assert.Equal(t, "core", cfg.TargetRepo)
	assert.Equal(t, 5, cfg.Mirrors)
	assert.Equal(t, 0, cfg.MaxCheck)
	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, "/etc/pacman.d/mirrorlist", cfg.OutputFile)
	assert.Len(t, cfg.Exclude, 2)
	assert.Equal(t, "/etc/pacmirror/excluded.conf", cfg.ExcludeFrom)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte("mirrors: 3\n"), 0644))

	cfg, err := Load(fs, "/cfg.yaml")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Mirrors)
	assert.Equal(t, "community", cfg.TargetRepo)
	assert.Equal(t, 100, cfg.MaxCheck)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/missing.yaml")
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg.yaml", []byte("mirrors: [not an int\n"), 0644))

	_, err := Load(fs, "/cfg.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty source url", func(c *Config) { c.SourceURL = "" }},
		{"zero mirrors", func(c *Config) { c.Mirrors = 0 }},
		{"negative mirrors", func(c *Config) { c.Mirrors = -1 }},
		{"negative max check", func(c *Config) { c.MaxCheck = -1 }},
		{"zero threads", func(c *Config) { c.Threads = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := FindConfigFile(fs)
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/etc/pacmirror/pacmirror.yaml", []byte("mirrors: 3\n"), 0644))
	path, err := FindConfigFile(fs)
	require.NoError(t, err)
	assert.Equal(t, "/etc/pacmirror/pacmirror.yaml", path)
}
