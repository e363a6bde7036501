package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ImageExt is the extension every stored image carries
const ImageExt = ".png"

// Manager owns the destination storage area for downloaded skins
type Manager struct {
	outputDir string
	mu        sync.Mutex
}

// StoredImage is an image file found in the storage area
type StoredImage struct {
	Index int
	Path  string
}

// NewManager creates a storage manager rooted at outputDir.
// The directory is not touched until Reset or SaveImage is called.
func NewManager(outputDir string) *Manager {
	return &Manager{outputDir: outputDir}
}

// Dir returns the output directory path
func (m *Manager) Dir() string {
	return m.outputDir
}

// Reset replaces the storage area with an empty directory.
// The old tree is renamed aside first so a crash never leaves a half-deleted area in place.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent := filepath.Dir(m.outputDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	if _, err := os.Stat(m.outputDir); err == nil {
		aside := fmt.Sprintf("%s.old-%d", m.outputDir, time.Now().UnixNano())
		if err := os.Rename(m.outputDir, aside); err != nil {
			return fmt.Errorf("failed to move old storage area: %w", err)
		}
		if err := os.RemoveAll(aside); err != nil {
			return fmt.Errorf("failed to remove old storage area: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat storage area: %w", err)
	}

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage area: %w", err)
	}
	return nil
}

// ImagePath returns the path an image with the given index is stored at
func (m *Manager) ImagePath(index int) string {
	return filepath.Join(m.outputDir, strconv.Itoa(index)+ImageExt)
}

// SaveImage writes an image under its index, replacing any existing file
func (m *Manager) SaveImage(index int, r io.Reader) (string, error) {
	if index < 0 {
		return "", fmt.Errorf("invalid image index %d", index)
	}
	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := m.ImagePath(index)
	tempFile := filename + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to save image data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filename, nil
}

// Images lists stored images sorted by index. Files not named <index>.png are ignored.
func (m *Manager) Images() ([]StoredImage, error) {
	return ListImages(m.outputDir)
}

// ListImages lists <index>.png files in dir sorted by index
func ListImages(dir string) ([]StoredImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var images []StoredImage
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ImageExt {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), ImageExt))
		if err != nil || index < 0 {
			continue
		}
		images = append(images, StoredImage{Index: index, Path: filepath.Join(dir, entry.Name())})
	}

	sort.Slice(images, func(i, j int) bool { return images[i].Index < images[j].Index })
	return images, nil
}

// Count returns the number of stored images
func (m *Manager) Count() (int, error) {
	images, err := m.Images()
	if err != nil {
		return 0, err
	}
	return len(images), nil
}

// Prune removes stored images whose index is at or above from
func (m *Manager) Prune(from int) (int, error) {
	images, err := m.Images()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, img := range images {
		if img.Index < from {
			continue
		}
		if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove %s: %w", img.Path, err)
		}
		removed++
	}
	return removed, nil
}

// Clean removes the storage area and, when given, the tag map file
func (m *Manager) Clean(tagMapPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.RemoveAll(m.outputDir); err != nil {
		return fmt.Errorf("failed to remove storage area: %w", err)
	}
	if tagMapPath != "" {
		if err := os.Remove(tagMapPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove tag map: %w", err)
		}
	}
	return nil
}
