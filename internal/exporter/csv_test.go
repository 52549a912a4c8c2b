package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/config"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.ResolvePaths(config.PathsConfig{
		BaseDir:    t.TempDir(),
		DataDir:    "data",
		LogsDir:    "logs",
		ExportsDir: "exports",
	})
	require.NoError(t, err)
	return paths
}

func TestEncodeCSV_BOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, []string{"Year", "Total"}, [][]string{{"2023", "50.00"}}, true))

	assert.Equal(t, "\xEF\xBB\xBFYear,Total\n2023,50.00\n", buf.String())
}

func TestEncodeCSV_Quoting(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, []string{"Segment"}, [][]string{{"Retail, Online"}, {`Say "hi"`}}, false))

	assert.Equal(t, "Segment\n\"Retail, Online\"\n\"Say \"\"hi\"\"\"\n", buf.String())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "0.00", formatFloat(0))
	assert.Equal(t, "-2.57", formatFloat(-2.567))
	assert.Equal(t, "3", formatInt(3))
	assert.Equal(t, "true", formatBool(true))
}
