package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/xsdgate/xsd"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultSchemaName, filepath.Base(cfg.Schema))
	assert.Equal(t, xsd.Lax, cfg.SchemaMode)
	assert.Zero(t, cfg.Timeout)
	assert.False(t, cfg.AllowRemoteImports)
	assert.Equal(t, xsd.DefaultCacheSize, cfg.SchemaCacheSize)
	assert.Equal(t, "auto", cfg.Color)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.True(t, cfg.LogCompress)
	assert.Empty(t, cfg.File)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, DefaultFile, "schema: plans/plan.xsd\nschema_mode: strict\ntimeout: 2s\n")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "plans/plan.xsd", cfg.Schema)
	assert.Equal(t, xsd.Strict, cfg.SchemaMode)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultFile, cfg.File)
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gate.yaml", `
schema: /opt/schemas/plan.xsd
allow_remote_imports: true
schema_cache_size: 4
color: never
log_level: debug
log_file: /tmp/xsdgate.log
log_max_backups: 7
log_compress: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/schemas/plan.xsd", cfg.Schema)
	assert.True(t, cfg.AllowRemoteImports)
	assert.Equal(t, 4, cfg.SchemaCacheSize)
	assert.Equal(t, "never", cfg.Color)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/xsdgate.log", cfg.LogFile)
	assert.Equal(t, 7, cfg.LogMaxBackups)
	assert.False(t, cfg.LogCompress)
	assert.Equal(t, 10, cfg.LogMaxSizeMB, "absent keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gate.yaml", "schema: from-file.xsd\ntimeout: 1s\n")
	t.Setenv("XSDGATE_SCHEMA", "from-env.xsd")
	t.Setenv("XSDGATE_TIMEOUT", "250")
	t.Setenv("XSDGATE_SCHEMA_MODE", "strict")
	t.Setenv("XSDGATE_ALLOW_REMOTE_IMPORTS", "yes")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env.xsd", cfg.Schema)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, xsd.Strict, cfg.SchemaMode)
	assert.True(t, cfg.AllowRemoteImports)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing explicit file", filepath.Join(dir, "absent.yaml")},
		{"malformed yaml", writeFile(t, dir, "bad.yaml", "schema: [unterminated\n")},
		{"unknown mode", writeFile(t, dir, "mode.yaml", "schema_mode: sloppy\n")},
		{"bad timeout", writeFile(t, dir, "timeout.yaml", "timeout: soon\n")},
		{"negative timeout", writeFile(t, dir, "neg.yaml", "timeout: -1s\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_BadEnvMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XSDGATE_SCHEMA_MODE", "sloppy")

	_, err := Load("")
	assert.Error(t, err)
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]string{"": "auto", "AUTO": "auto", "always": "always", " never ": "never"} {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseColor("sometimes")
	assert.Error(t, err)
}
