package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, DefaultMaxDepth, cfg.Ingestion.MaxDepth)
	assert.Equal(t, DefaultYieldEvery, cfg.Ingestion.YieldEvery)
	assert.True(t, cfg.Ingestion.Lenient)
	assert.Equal(t, DefaultValueFile, cfg.Paths.ValueFile)
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
}

func TestLoadFile_Layers(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  read_timeout: 5s
ingestion:
  max_depth: 10
  lenient: false
paths:
  data_dir: /srv/market
`)
	t.Setenv("MARKETLENS_SERVER_PORT", "9100")
	t.Setenv("MARKETLENS_SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10, cfg.Ingestion.MaxDepth)
	assert.False(t, cfg.Ingestion.Lenient)
	assert.Equal(t, "/srv/market", cfg.Paths.DataDir)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
	assert.Equal(t, DefaultYieldEvery, cfg.Ingestion.YieldEvery, "unset keys keep defaults")
	assert.Equal(t, DefaultValueFile, cfg.Paths.ValueFile)
}

func TestLoadFile_NoFile(t *testing.T) {
	t.Setenv("MARKETLENS_INGESTION_MAX_DEPTH", "7")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Ingestion.MaxDepth)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "invalid log level", yaml: "logging:\n  level: verbose\n"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n"},
		{name: "depth below one", yaml: "ingestion:\n  max_depth: 0\n"},
		{name: "unknown exporter", yaml: "telemetry:\n  trace_exporter: jaeger\n"},
		{name: "malformed yaml", yaml: "server: [\n"},
		{name: "unparsable env", yaml: "", env: map[string]string{"MARKETLENS_SERVER_PORT": "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
