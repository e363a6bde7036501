package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	errs "skinscraper/pkg/errors"
)

func TestManagerSaveImage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skins")
	manager := NewManager(dir)

	testData := []byte("png bytes")
	path, err := manager.SaveImage(0, bytes.NewReader(testData))
	if err != nil {
		t.Fatalf("Failed to save image: %v", err)
	}

	expectedPath := filepath.Join(dir, "0.png")
	if path != expectedPath {
		t.Errorf("Expected path %s, got %s", expectedPath, path)
	}

	content, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	if !bytes.Equal(content, testData) {
		t.Error("File content does not match expected data")
	}

	if _, err := os.Stat(expectedPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not exist after save")
	}

	if _, err := manager.SaveImage(-1, bytes.NewReader(testData)); err == nil {
		t.Error("Expected error for negative index")
	}
}

func TestManagerReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skins")
	manager := NewManager(dir)

	for i := 0; i < 3; i++ {
		if _, err := manager.SaveImage(i, bytes.NewReader([]byte("x"))); err != nil {
			t.Fatalf("Failed to save image %d: %v", i, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := manager.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Storage area missing after reset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty storage area, found %d entries", len(entries))
	}

	siblings, err := os.ReadDir(filepath.Dir(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(siblings) != 1 {
		t.Errorf("Expected only the storage area in parent, found %d entries", len(siblings))
	}
}

func TestManagerResetCreatesMissingArea(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "skins")
	manager := NewManager(dir)

	if err := manager.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Error("Expected storage area to be created")
	}
}

func TestManagerImagesSortedByIndex(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir)

	for _, i := range []int{10, 2, 0, 1} {
		if _, err := manager.SaveImage(i, bytes.NewReader([]byte("x"))); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(dir, "cover.png"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "3.jpg"), []byte("x"), 0644)

	images, err := manager.Images()
	if err != nil {
		t.Fatalf("Images failed: %v", err)
	}

	want := []int{0, 1, 2, 10}
	if len(images) != len(want) {
		t.Fatalf("Expected %d images, got %d", len(want), len(images))
	}
	for i, img := range images {
		if img.Index != want[i] {
			t.Errorf("Position %d: expected index %d, got %d", i, want[i], img.Index)
		}
	}

	count, err := manager.Count()
	if err != nil || count != 4 {
		t.Errorf("Expected count 4, got %d (%v)", count, err)
	}
}

func TestManagerPrune(t *testing.T) {
	manager := NewManager(t.TempDir())
	for i := 0; i < 5; i++ {
		if _, err := manager.SaveImage(i, bytes.NewReader([]byte("x"))); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := manager.Prune(3)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if count, _ := manager.Count(); count != 3 {
		t.Errorf("Expected 3 images left, got %d", count)
	}
}

func TestImagesMissingDirectory(t *testing.T) {
	images, err := ListImages(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("Expected no error for missing directory, got %v", err)
	}
	if len(images) != 0 {
		t.Error("Expected no images")
	}
}

func TestManagerClean(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "skins")
	tagPath := filepath.Join(root, "tags.json")
	manager := NewManager(dir)

	if _, err := manager.SaveImage(0, bytes.NewReader([]byte("x"))); err != nil {
		t.Fatal(err)
	}
	if err := WriteTagMap(tagPath, TagMap{0: {"a"}}); err != nil {
		t.Fatal(err)
	}

	if err := manager.Clean(tagPath); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Expected storage area to be removed")
	}
	if _, err := os.Stat(tagPath); !os.IsNotExist(err) {
		t.Error("Expected tag map to be removed")
	}

	// cleaning twice is fine
	if err := manager.Clean(tagPath); err != nil {
		t.Errorf("Second clean failed: %v", err)
	}
}

func TestTagMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "tags.json")
	tags := TagMap{
		0:  {"Dragon", "dragon"},
		1:  {"Cat"},
		2:  nil,
		10: {"Knight"},
	}

	if err := WriteTagMap(path, tags); err != nil {
		t.Fatalf("WriteTagMap failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(raw, []byte(`"10": [`)) {
		t.Errorf("Expected decimal string keys, got %s", raw)
	}
	if !bytes.Contains(raw, []byte(`"2": []`)) {
		t.Errorf("Expected empty list for untagged image, got %s", raw)
	}

	loaded, err := ReadTagMap(path)
	if err != nil {
		t.Fatalf("ReadTagMap failed: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(loaded))
	}
	if loaded[0][1] != "dragon" || loaded[10][0] != "Knight" || len(loaded[2]) != 0 {
		t.Errorf("Unexpected tag map contents: %v", loaded)
	}

	got := loaded.Indices()
	want := []int{0, 1, 2, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Indices()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWriteTagMapOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.json")
	if err := WriteTagMap(path, TagMap{0: {"a"}, 1: {"b"}}); err != nil {
		t.Fatal(err)
	}
	if err := WriteTagMap(path, TagMap{0: {"c"}}); err != nil {
		t.Fatal(err)
	}

	loaded, err := ReadTagMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0][0] != "c" {
		t.Errorf("Expected overwritten map, got %v", loaded)
	}
}

func TestReadTagMapRejectsBadKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tags.json")
	if err := os.WriteFile(path, []byte(`{"zero": ["a"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ReadTagMap(path)
	if err == nil {
		t.Fatal("Expected error for non-integer key")
	}
	if !errs.IsType(err, errs.ErrorTypeParsing) {
		t.Errorf("Expected parsing error, got %v", err)
	}
}
