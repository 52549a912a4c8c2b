package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/config"
	apperrors "marketlens/internal/errors"
	"marketlens/internal/shared/testutil"
	"marketlens/internal/validation"
)

func pathsFor(dir string) *config.Paths {
	return &config.Paths{
		BaseDir:       dir,
		DataDir:       dir,
		ValueFile:     filepath.Join(dir, testutil.ValueFileName),
		VolumeFile:    filepath.Join(dir, testutil.VolumeFileName),
		StructureFile: filepath.Join(dir, testutil.StructureFileName),
	}
}

func newDiscovery(t *testing.T, dir string, maxBytes int64) *Discovery {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewDiscovery(pathsFor(dir), validation.NewFileValidator(logger, maxBytes), logger)
}

func TestDiscover_AllDocuments(t *testing.T) {
	dir := testutil.WriteDocuments(t, testutil.MarketValueJSON, testutil.MarketValueJSON, testutil.MarketStructureJSON)

	found, docs, err := newDiscovery(t, dir, 0).DiscoverAndLoad(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, testutil.ValueFileName, found.Value.Name)
	require.NotNil(t, found.Volume)
	require.NotNil(t, found.Structure)

	assert.Equal(t, testutil.MarketValueJSON, string(docs.Value.Data))
	assert.Equal(t, testutil.ValueFileName, docs.Value.Name)
	require.True(t, docs.Volume.Present())
	require.True(t, docs.Structure.Present())
	assert.Equal(t, testutil.MarketStructureJSON, string(docs.Structure.Data))
}

func TestDiscover_CompanionsOptional(t *testing.T) {
	dir := testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", "")

	found, docs, err := newDiscovery(t, dir, 0).DiscoverAndLoad(context.Background(), "")
	require.NoError(t, err)

	assert.Nil(t, found.Volume)
	assert.Nil(t, found.Structure)
	assert.False(t, docs.Volume.Present())
	assert.False(t, docs.Structure.Present())
	assert.True(t, docs.Value.Present())
}

func TestDiscover_ValueFallback(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "market_value_2023.json")
	newer := filepath.Join(dir, "market_value_2024.json")
	require.NoError(t, os.WriteFile(older, []byte(`{"a":1}`), 0644))
	require.NoError(t, os.WriteFile(newer, []byte(`{"b":2}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("value"), 0644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	found, err := newDiscovery(t, dir, 0).Discover()
	require.NoError(t, err)
	assert.Equal(t, newer, found.Value.Path)
}

func TestDiscover_Errors(t *testing.T) {
	t.Run("no value document", func(t *testing.T) {
		dir := testutil.WriteDocuments(t, "", testutil.MarketValueJSON, "")

		_, err := newDiscovery(t, dir, 0).Discover()
		require.Error(t, err)
		assert.ErrorIs(t, err, validation.ErrFileNotFound)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrTypeIngestion, appErr.Type)
	})

	t.Run("value document too large", func(t *testing.T) {
		dir := testutil.WriteDocuments(t, testutil.MarketValueJSON, "", "")

		_, err := newDiscovery(t, dir, 8).Discover()
		assert.ErrorIs(t, err, validation.ErrFileTooLarge)
	})

	t.Run("companion is a directory", func(t *testing.T) {
		dir := testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", "")
		require.NoError(t, os.Mkdir(filepath.Join(dir, testutil.StructureFileName), 0755))

		_, err := newDiscovery(t, dir, 0).Discover()
		assert.ErrorIs(t, err, validation.ErrNotRegularFile)
	})
}

func TestDiscoverIn(t *testing.T) {
	configured := t.TempDir()
	other := testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", testutil.MarketStructureJSON)

	found, err := newDiscovery(t, configured, 0).DiscoverIn(other)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, testutil.ValueFileName), found.Value.Path)
	require.NotNil(t, found.Structure)
	assert.Nil(t, found.Volume)
}

func TestLoad_CancelledContext(t *testing.T) {
	dir := testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", "")
	d := newDiscovery(t, dir, 0)

	found, err := d.Discover()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Load(ctx, found)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"value.json", "Value_Old.HJSON", "volume.json", "value.csv", "~$value.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "value_dir.json"), 0755))

	found, err := FindDocuments(dir, "*value*")
	require.NoError(t, err)

	names := make([]string, 0, len(found))
	for _, f := range found {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"value.json", "Value_Old.HJSON"}, names)

	_, err = FindDocuments(filepath.Join(dir, "missing"), "*")
	assert.True(t, os.IsNotExist(err))
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	latest, ok := GetLatestFile([]FileInfo{
		{Name: "a", ModTime: now.Add(-2 * time.Hour)},
		{Name: "b", ModTime: now},
		{Name: "c", ModTime: now.Add(-time.Hour)},
	})
	require.True(t, ok)
	assert.Equal(t, "b", latest.Name)
}
