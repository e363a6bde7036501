package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skinscraper/pkg/logger"
)

// Version is the on-disk checkpoint format version
const Version = 1

// Checkpoint is the resumable state of a crawl after its last completed page
type Checkpoint struct {
	ListingRoot       string              `json:"listing_root"`
	BaseURL           string              `json:"base_url"`
	SearchTerm        string              `json:"search_term,omitempty"`
	Pages             int                 `json:"pages"`
	LastCompletedPage int                 `json:"last_completed_page"`
	NextIndex         int                 `json:"next_index"`
	Seen              []string            `json:"seen"`
	TagMap            map[string][]string `json:"tag_map"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
	Version           int                 `json:"version"`
}

// Manager handles checkpoint operations for one listing root
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// FileName returns the checkpoint file name for a listing root
func FileName(listingRoot string) string {
	sum := sha256.Sum256([]byte(listingRoot))
	return hex.EncodeToString(sum[:])[:16] + ".checkpoint.json"
}

// NewManager creates a checkpoint manager storing its file under dir
func NewManager(dir, listingRoot string, log logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, FileName(listingRoot)),
		logger:         log,
	}, nil
}

// Path returns the checkpoint file path
func (m *Manager) Path() string {
	return m.checkpointPath
}

// New returns an empty checkpoint for a crawl that has not completed any page yet
func New(listingRoot, baseURL, searchTerm string, pages int) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		ListingRoot: listingRoot,
		BaseURL:     baseURL,
		SearchTerm:  searchTerm,
		Pages:       pages,
		Seen:        []string{},
		TagMap:      map[string][]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     Version,
	}
}

// Load loads an existing checkpoint. It returns nil without error when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != Version {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	if cp.TagMap == nil {
		cp.TagMap = map[string][]string{}
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"listing_root":        cp.ListingRoot,
		"last_completed_page": cp.LastCompletedPage,
		"next_index":          cp.NextIndex,
		"updated_at":          cp.UpdatedAt,
	})

	return &cp, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()
	if cp.Version == 0 {
		cp.Version = Version
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"last_completed_page": cp.LastCompletedPage,
		"next_index":          cp.NextIndex,
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Info returns a summary of the stored checkpoint, or nil when there is none
func (m *Manager) Info() (map[string]interface{}, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return nil, err
	}

	return map[string]interface{}{
		"listing_root":        cp.ListingRoot,
		"last_completed_page": cp.LastCompletedPage,
		"pages":               cp.Pages,
		"images":              cp.NextIndex,
		"created_at":          cp.CreatedAt,
		"updated_at":          cp.UpdatedAt,
		"age":                 time.Since(cp.UpdatedAt),
	}, nil
}
