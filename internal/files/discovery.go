package files

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"marketlens/internal/config"
	"marketlens/internal/dataprocessing"
	"marketlens/internal/errors"
	"marketlens/internal/validation"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// DocumentFiles are the located inputs of one ingestion run.
type DocumentFiles struct {
	Value     FileInfo
	Volume    *FileInfo
	Structure *FileInfo
}

// Discovery locates and reads the value, volume and structure documents.
type Discovery struct {
	paths     *config.Paths
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewDiscovery creates a discovery bound to the resolved document paths.
func NewDiscovery(paths *config.Paths, validator *validation.FileValidator, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = validation.NewFileValidator(logger, config.DefaultMaxDocumentBytes)
	}
	return &Discovery{
		paths:     paths,
		validator: validator,
		logger:    logger.With(slog.String("component", "document_discovery")),
	}
}

// Discover locates the configured documents. When the configured value
// document is absent, the most recent "*value*" document in the data
// directory is used instead.
func (d *Discovery) Discover() (*DocumentFiles, error) {
	return d.discover(d.paths.DataDir, d.paths.ValueFile, d.paths.VolumeFile, d.paths.StructureFile)
}

// DiscoverIn locates documents in dir using the configured file names.
func (d *Discovery) DiscoverIn(dir string) (*DocumentFiles, error) {
	in := func(configured string) string {
		if configured == "" {
			return ""
		}
		return filepath.Join(dir, filepath.Base(configured))
	}
	return d.discover(dir, in(d.paths.ValueFile), in(d.paths.VolumeFile), in(d.paths.StructureFile))
}

func (d *Discovery) discover(dir, valuePath, volumePath, structurePath string) (*DocumentFiles, error) {
	value, err := d.locate(valuePath)
	if err != nil && !isNotFound(err) {
		return nil, errors.NewIngestionError("value document is invalid", err)
	}
	if value == nil {
		value, err = d.fallbackValue(dir)
		if err != nil {
			return nil, err
		}
	}

	found := &DocumentFiles{Value: *value}
	if found.Volume, err = d.companion("volume", volumePath); err != nil {
		return nil, err
	}
	if found.Structure, err = d.companion("structure", structurePath); err != nil {
		return nil, err
	}

	d.logger.Info("Documents discovered",
		slog.String("value", found.Value.Path),
		slog.Bool("has_volume", found.Volume != nil),
		slog.Bool("has_structure", found.Structure != nil))
	return found, nil
}

// companion locates an optional document. Absence is not an error; an
// existing but unusable file is.
func (d *Discovery) companion(kind, path string) (*FileInfo, error) {
	if path == "" {
		return nil, nil
	}
	info, err := d.locate(path)
	if err != nil {
		if isNotFound(err) {
			d.logger.Debug("Optional document not present",
				slog.String("kind", kind),
				slog.String("path", path))
			return nil, nil
		}
		return nil, errors.NewIngestionError(kind+" document is invalid", err)
	}
	return info, nil
}

func (d *Discovery) locate(path string) (*FileInfo, error) {
	if path == "" {
		return nil, fmt.Errorf("no path configured: %w", validation.ErrFileNotFound)
	}
	info, err := d.validator.ValidateDocument(path)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Path:    path,
		Name:    filepath.Base(path),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (d *Discovery) fallbackValue(dir string) (*FileInfo, error) {
	candidates, err := FindDocuments(dir, "*value*")
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.NewIngestionError("failed to scan data directory", err)
	}

	for len(candidates) > 0 {
		latest, _ := GetLatestFile(candidates)
		if verr := d.validator.ValidateSize(latest.Path, latest.Size); verr == nil {
			d.logger.Warn("Configured value document missing, using discovered file",
				slog.String("path", latest.Path))
			return &latest, nil
		}
		candidates = removeFile(candidates, latest.Path)
	}
	return nil, errors.NewIngestionError("value document not found",
		fmt.Errorf("%s: %w", dir, validation.ErrFileNotFound))
}

// Load reads the located documents into pipeline sources.
func (d *Discovery) Load(ctx context.Context, found *DocumentFiles) (dataprocessing.Documents, error) {
	var docs dataprocessing.Documents

	value, err := d.read(ctx, found.Value)
	if err != nil {
		return docs, err
	}
	docs.Value = *value

	if found.Volume != nil {
		if docs.Volume, err = d.read(ctx, *found.Volume); err != nil {
			return docs, err
		}
	}
	if found.Structure != nil {
		if docs.Structure, err = d.read(ctx, *found.Structure); err != nil {
			return docs, err
		}
	}
	return docs, nil
}

// DiscoverAndLoad locates the documents and loads them. An empty dir means
// the configured data directory.
func (d *Discovery) DiscoverAndLoad(ctx context.Context, dir string) (*DocumentFiles, dataprocessing.Documents, error) {
	var (
		found *DocumentFiles
		err   error
	)
	if dir != "" {
		found, err = d.DiscoverIn(dir)
	} else {
		found, err = d.Discover()
	}
	if err != nil {
		return nil, dataprocessing.Documents{}, err
	}
	docs, err := d.Load(ctx, found)
	return found, docs, err
}

func (d *Discovery) read(ctx context.Context, f FileInfo) (*dataprocessing.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, errors.NewStorageError("failed to read document", err).WithContext("path", f.Path)
	}
	// The file may have grown since discovery.
	if err := d.validator.ValidateSize(f.Path, int64(len(data))); err != nil {
		return nil, errors.NewIngestionError("document too large", err)
	}
	d.logger.Debug("Document read",
		slog.String("path", f.Path),
		slog.Int("bytes", len(data)))
	return &dataprocessing.Source{Name: f.Name, Data: data}, nil
}

// FindDocuments returns the document files in dir whose names match
// pattern, oldest first.
func FindDocuments(dir, pattern string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var found []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !validation.IsDocumentFile(entry.Name()) {
			continue
		}
		stem := strings.TrimSuffix(strings.ToLower(entry.Name()), strings.ToLower(filepath.Ext(entry.Name())))
		if ok, _ := filepath.Match(strings.ToLower(pattern), stem); !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].ModTime.Equal(found[j].ModTime) {
			return found[i].Name < found[j].Name
		}
		return found[i].ModTime.Before(found[j].ModTime)
	})
	return found, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

func removeFile(files []FileInfo, path string) []FileInfo {
	out := files[:0:0]
	for _, f := range files {
		if f.Path != path {
			out = append(out, f)
		}
	}
	return out
}

func isNotFound(err error) bool {
	return stderrors.Is(err, validation.ErrFileNotFound)
}
