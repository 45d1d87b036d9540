// Package sites supplies crawl targets. The production source of truth is an
// external service; the file source covers batch runs and tests.
package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"page-harvester/internal/models"
)

// Source returns the list of sites to crawl.
type Source interface {
	Sites(ctx context.Context) ([]models.SiteConfig, error)
}

// FileSource reads site configurations from a JSON file holding an array of
// SiteConfig objects.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed site source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Sites loads and decodes the configured file.
func (s *FileSource) Sites(_ context.Context) ([]models.SiteConfig, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	var configs []models.SiteConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("decode sites file %s: %w", s.path, err)
	}
	return configs, nil
}
