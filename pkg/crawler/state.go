package crawler

import (
	"strconv"

	"skinscraper/pkg/checkpoint"
	errs "skinscraper/pkg/errors"
	"skinscraper/pkg/storage"
)

// State is the mutable crawl state owned by one Crawl call
type State struct {
	seen     map[string]struct{}
	seenList []string
	next     int
	tagMap   storage.TagMap
}

// NewState returns an empty crawl state
func NewState() *State {
	return &State{
		seen:   make(map[string]struct{}),
		tagMap: make(storage.TagMap),
	}
}

// Seen reports whether an image URL was already downloaded in this run
func (s *State) Seen(sourceURL string) bool {
	_, ok := s.seen[sourceURL]
	return ok
}

// NextIndex returns the index the next saved image will get
func (s *State) NextIndex() int {
	return s.next
}

// Commit records a successful download and returns its index
func (s *State) Commit(sourceURL string, tags []string) int {
	index := s.next
	s.seen[sourceURL] = struct{}{}
	s.seenList = append(s.seenList, sourceURL)
	if tags == nil {
		tags = []string{}
	}
	s.tagMap[index] = append([]string(nil), tags...)
	s.next++
	return index
}

// TagMap returns a copy of the index to tags mapping
func (s *State) TagMap() storage.TagMap {
	out := make(storage.TagMap, len(s.tagMap))
	for i, tags := range s.tagMap {
		out[i] = append([]string{}, tags...)
	}
	return out
}

// Snapshot copies the state into a checkpoint
func (s *State) Snapshot(cp *checkpoint.Checkpoint) {
	cp.NextIndex = s.next
	cp.Seen = append([]string{}, s.seenList...)
	cp.TagMap = make(map[string][]string, len(s.tagMap))
	for i, tags := range s.tagMap {
		cp.TagMap[strconv.Itoa(i)] = append([]string{}, tags...)
	}
}

// Restore rebuilds a state from a checkpoint
func Restore(cp *checkpoint.Checkpoint) (*State, error) {
	s := NewState()
	for _, u := range cp.Seen {
		if _, dup := s.seen[u]; dup {
			continue
		}
		s.seen[u] = struct{}{}
		s.seenList = append(s.seenList, u)
	}
	for key, tags := range cp.TagMap {
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 || index >= cp.NextIndex {
			return nil, errs.NewParsingError("checkpoint tag map key "+strconv.Quote(key), err)
		}
		if tags == nil {
			tags = []string{}
		}
		s.tagMap[index] = tags
	}
	s.next = cp.NextIndex
	return s, nil
}
