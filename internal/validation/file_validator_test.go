package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/shared/testutil"
)

func TestFileValidator_ValidateDocument(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		maxBytes int64
		wantErr  error
	}{
		{
			name: "valid json document",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "value.json")
				require.NoError(t, os.WriteFile(path, []byte(`{"Global":{}}`), 0644))
				return path
			},
			maxBytes: 1024,
		},
		{
			name: "hjson extension accepted",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "value.HJSON")
				require.NoError(t, os.WriteFile(path, []byte(`{Global: {}}`), 0644))
				return path
			},
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.json")
			},
			wantErr: ErrFileNotFound,
		},
		{
			name: "directory with document extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "dir.json")
				require.NoError(t, os.Mkdir(path, 0755))
				return path
			},
			wantErr: ErrNotRegularFile,
		},
		{
			name: "too large",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "value.json")
				require.NoError(t, os.WriteFile(path, []byte(`{"Global":{"a":1}}`), 0644))
				return path
			},
			maxBytes: 4,
			wantErr:  ErrFileTooLarge,
		},
		{
			name: "unsupported extension",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "value.xlsx")
				require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
				return path
			},
			wantErr: ErrUnsupportedFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			v := NewFileValidator(logger, tt.maxBytes)

			info, err := v.ValidateDocument(tt.setup(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, info)
				return
			}
			require.NoError(t, err)
			assert.True(t, info.Mode().IsRegular())
		})
	}
}

func TestFileValidator_ValidateSize(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	v := NewFileValidator(logger, 10)

	assert.NoError(t, v.ValidateSize("upload", 10))
	assert.ErrorIs(t, v.ValidateSize("upload", 11), ErrFileTooLarge)
	assert.True(t, logs.ContainsMessage("Document too large"))

	unlimited := NewFileValidator(nil, 0)
	assert.NoError(t, unlimited.ValidateSize("upload", 1<<40))
	assert.Equal(t, int64(0), unlimited.MaxBytes())
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil, 0)

	dir := filepath.Join(t.TempDir(), "nested", "exports")
	require.NoError(t, v.ValidateOutputDirectory(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary write file is removed")
}

func TestIsDocumentFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"value.json", true},
		{"/data/Structure.JSON", true},
		{"volume.hjson", true},
		{"value.csv", false},
		{"~$value.json", false},
		{".#value.json", false},
		{"value", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDocumentFile(tt.path))
		})
	}
}
