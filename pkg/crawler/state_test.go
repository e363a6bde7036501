package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skinscraper/pkg/checkpoint"
	errs "skinscraper/pkg/errors"
	"skinscraper/pkg/storage"
)

func TestStateCommit(t *testing.T) {
	s := NewState()
	assert.False(t, s.Seen("a"))
	assert.Equal(t, 0, s.NextIndex())

	assert.Equal(t, 0, s.Commit("a", []string{"Dragon"}))
	assert.Equal(t, 1, s.Commit("b", nil))

	assert.True(t, s.Seen("a"))
	assert.Equal(t, 2, s.NextIndex())
	assert.Equal(t, storage.TagMap{0: {"Dragon"}, 1: {}}, s.TagMap())
}

func TestStateTagMapIsCopy(t *testing.T) {
	s := NewState()
	s.Commit("a", []string{"x"})

	m := s.TagMap()
	m[0][0] = "changed"
	m[5] = []string{"y"}

	assert.Equal(t, storage.TagMap{0: {"x"}}, s.TagMap())
}

func TestStateSnapshotRestore(t *testing.T) {
	s := NewState()
	s.Commit("https://cdn.example/a.png", []string{"one"})
	s.Commit("https://cdn.example/b.png", []string{})

	cp := checkpoint.New(base, base, "", 3)
	s.Snapshot(cp)
	assert.Equal(t, 2, cp.NextIndex)
	assert.Equal(t, []string{"https://cdn.example/a.png", "https://cdn.example/b.png"}, cp.Seen)
	assert.Equal(t, map[string][]string{"0": {"one"}, "1": {}}, cp.TagMap)

	restored, err := Restore(cp)
	require.NoError(t, err)
	assert.Equal(t, 2, restored.NextIndex())
	assert.True(t, restored.Seen("https://cdn.example/b.png"))
	assert.Equal(t, s.TagMap(), restored.TagMap())
}

func TestRestoreRejectsInconsistentCheckpoint(t *testing.T) {
	cp := checkpoint.New(base, base, "", 1)
	cp.NextIndex = 1
	cp.TagMap = map[string][]string{"4": {"x"}}

	_, err := Restore(cp)
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))

	cp.TagMap = map[string][]string{"zero": {"x"}}
	_, err = Restore(cp)
	assert.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{BaseURL: base, Pages: 1}.Validate())

	for _, req := range []Request{
		{BaseURL: "", Pages: 1},
		{BaseURL: "https://skins.example", Pages: 1},
		{BaseURL: base, Pages: 0},
	} {
		err := req.Validate()
		assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration), "request %+v", req)
	}
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://skins.example/12", PageURL(base, 12))
	assert.Equal(t, base, ListingRoot(base, ""))
}
