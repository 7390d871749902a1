package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgnsrekt/bookvoice/internal/book"
	"gopkg.in/yaml.v3"
)

// Manifest lists the files produced for one book.
type Manifest struct {
	Book      string          `yaml:"book"`
	Engine    string          `yaml:"engine"`
	Voice     string          `yaml:"voice,omitempty"`
	Generated time.Time       `yaml:"generated"`
	Chapters  []ManifestEntry `yaml:"chapters"`
	Complete  string          `yaml:"complete,omitempty"`
}

// ManifestEntry is one chapter in the manifest.
type ManifestEntry struct {
	Title string `yaml:"title"`
	File  string `yaml:"file"`
}

// WriteManifest writes <base>_manifest.yaml into dir. File paths are
// stored relative to dir.
func (c *Converter) WriteManifest(files []AudioFile, complete string) (string, error) {
	info := c.opts.Engine.Info()
	m := Manifest{
		Book:      c.opts.BaseName,
		Engine:    info.Name,
		Voice:     info.Voice,
		Generated: c.opts.Clock(),
		Complete:  relative(c.opts.OutputDir, complete),
	}
	for _, f := range files {
		m.Chapters = append(m.Chapters, ManifestEntry{Title: f.Title, File: relative(c.opts.OutputDir, f.SavedPath)})
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	path := filepath.Join(c.opts.OutputDir, book.ManifestFileName(c.opts.BaseName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return path, nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decoding manifest: %w", err)
	}
	return m, nil
}

func relative(dir, path string) string {
	if path == "" {
		return ""
	}
	if rel, err := filepath.Rel(dir, path); err == nil {
		return rel
	}
	return path
}
