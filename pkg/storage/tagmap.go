package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	errs "skinscraper/pkg/errors"
)

// TagMap maps an image index to the tags scraped for it
type TagMap map[int][]string

// Indices returns the map keys in ascending order
func (t TagMap) Indices() []int {
	indices := make([]int, 0, len(t))
	for i := range t {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// WriteTagMap writes the tag map as indented JSON with decimal string keys.
// An existing file is overwritten atomically.
func WriteTagMap(path string, tags TagMap) error {
	encoded := make(map[string][]string, len(tags))
	for index, list := range tags {
		if list == nil {
			list = []string{}
		}
		encoded[strconv.Itoa(index)] = list
	}

	data, err := json.MarshalIndent(encoded, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tag map: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create tag map directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write tag map: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace tag map: %w", err)
	}
	return nil
}

// ReadTagMap loads a tag map written by WriteTagMap
func ReadTagMap(path string) (TagMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tag map: %w", err)
	}
	return ParseTagMap(data)
}

// ParseTagMap decodes tag map JSON with string index keys
func ParseTagMap(data []byte) (TagMap, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.NewParsingError("tag map", err)
	}

	tags := make(TagMap, len(raw))
	for key, list := range raw {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, errs.NewParsingError("tag map key "+strconv.Quote(key), err)
		}
		if list == nil {
			list = []string{}
		}
		tags[index] = list
	}
	return tags, nil
}
