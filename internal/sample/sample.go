// Package sample bundles a small set of skins and their tags for the test
// pipeline.
package sample

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"skinscraper/pkg/storage"
)

//go:embed skins/*.png skins/tags.json
var files embed.FS

const (
	skinsDir    = "skins"
	tagMapName  = "tags.json"
	imageSubdir = "skins"
)

// Set is an extracted sample set
type Set struct {
	ImageDir   string
	TagMapPath string
	Images     int
}

// Extract writes the bundled images to dir/skins and the tag map to dir/tags.json
func Extract(dir string) (*Set, error) {
	set := &Set{
		ImageDir:   filepath.Join(dir, imageSubdir),
		TagMapPath: filepath.Join(dir, tagMapName),
	}
	if err := os.MkdirAll(set.ImageDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create sample directory: %w", err)
	}

	entries, err := fs.ReadDir(files, skinsDir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		data, err := files.ReadFile(path.Join(skinsDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		target := filepath.Join(set.ImageDir, entry.Name())
		if entry.Name() == tagMapName {
			target = set.TagMapPath
		} else {
			set.Images++
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", target, err)
		}
	}

	return set, nil
}

// TagMap returns the bundled tag map without touching disk
func TagMap() (storage.TagMap, error) {
	data, err := files.ReadFile(path.Join(skinsDir, tagMapName))
	if err != nil {
		return nil, err
	}
	return storage.ParseTagMap(data)
}
