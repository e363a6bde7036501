package classify

import (
	"fmt"
	"sort"
	"strings"

	errs "skinscraper/pkg/errors"
)

const (
	// NoTags is the class of an image without tags
	NoTags = "no_tags"
	// Other is the class of an image whose popular tag is outside the top N
	Other = "other"
	// DefaultTopN is the default vocabulary size
	DefaultTopN = 10
)

// Order decides how regular classes are numbered
type Order string

const (
	OrderAlphabetical Order = "alphabetical"
	OrderFirstSeen    Order = "first-seen"
	OrderFrequency    Order = "frequency"
)

// ParseOrder converts a configuration value into an Order. Empty means alphabetical.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderAlphabetical:
		return OrderAlphabetical, nil
	case OrderFirstSeen, "first_seen", "firstseen":
		return OrderFirstSeen, nil
	case OrderFrequency:
		return OrderFrequency, nil
	default:
		return "", errs.NewConfigurationError("unknown target order %q (want alphabetical, first-seen or frequency)", s)
	}
}

// TagCount is one row of the frequency table
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Assignment is the classification of one image
type Assignment struct {
	Index      int    `json:"index"`
	PopularTag string `json:"popular_tag"`
	Class      string `json:"class"`
	Target     int    `json:"target"`
}

// Result holds both derived tables
type Result struct {
	Frequencies []TagCount
	Assignments []Assignment
	Targets     map[string]int
}

// Frequencies builds the tag frequency table. Tags match case-insensitively
// and keep the casing of their first occurrence. Rows are sorted by count,
// ties keep first-seen order.
func Frequencies(tagMap map[int][]string) []TagCount {
	table, _ := frequencies(tagMap, sortedIndices(tagMap))
	return table
}

func frequencies(tagMap map[int][]string, indices []int) ([]TagCount, map[string]int) {
	pos := make(map[string]int)
	var table []TagCount
	for _, idx := range indices {
		for _, tag := range tagMap[idx] {
			key := strings.ToLower(tag)
			if i, ok := pos[key]; ok {
				table[i].Count++
				continue
			}
			pos[key] = len(table)
			table = append(table, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].Count > table[j].Count
	})

	rank := make(map[string]int, len(table))
	for i, tc := range table {
		rank[strings.ToLower(tc.Tag)] = i
	}
	return table, rank
}

// Classify computes the frequency table and a class assignment per image
func Classify(tagMap map[int][]string, topN int, order Order) (*Result, error) {
	if topN <= 0 {
		return nil, errs.NewConfigurationError("top_n must be a positive integer, got %d", topN)
	}
	if order == "" {
		order = OrderAlphabetical
	}
	if _, err := ParseOrder(string(order)); err != nil {
		return nil, err
	}

	indices := sortedIndices(tagMap)
	table, rank := frequencies(tagMap, indices)
	if len(table) > 0 && topN > len(table) {
		return nil, errs.NewConfigurationError("top_n %d exceeds the %d distinct tags observed", topN, len(table))
	}

	result := &Result{
		Frequencies: table,
		Assignments: make([]Assignment, 0, len(indices)),
	}
	if result.Frequencies == nil {
		result.Frequencies = []TagCount{}
	}

	for _, idx := range indices {
		popular := popularTag(tagMap[idx], table, rank)
		class := popular
		if popular != NoTags && rank[strings.ToLower(popular)] >= topN {
			class = Other
		}
		result.Assignments = append(result.Assignments, Assignment{
			Index:      idx,
			PopularTag: popular,
			Class:      class,
		})
	}

	result.Targets = targets(result.Assignments, rank, order)
	for i := range result.Assignments {
		result.Assignments[i].Target = result.Targets[result.Assignments[i].Class]
	}
	return result, nil
}

// popularTag picks the tag with the highest count, earliest position wins ties.
// The canonical casing from the frequency table is returned.
func popularTag(tags []string, table []TagCount, rank map[string]int) string {
	if len(tags) == 0 {
		return NoTags
	}
	best := -1
	for _, tag := range tags {
		r := rank[strings.ToLower(tag)]
		if best == -1 || table[r].Count > table[best].Count {
			best = r
		}
	}
	return table[best].Tag
}

func targets(assignments []Assignment, rank map[string]int, order Order) map[string]int {
	var classes []string
	seen := make(map[string]bool)
	for _, a := range assignments {
		if a.Class == NoTags || a.Class == Other || seen[a.Class] {
			continue
		}
		seen[a.Class] = true
		classes = append(classes, a.Class)
	}

	switch order {
	case OrderAlphabetical:
		sort.Strings(classes)
	case OrderFrequency:
		sort.SliceStable(classes, func(i, j int) bool {
			return rank[strings.ToLower(classes[i])] < rank[strings.ToLower(classes[j])]
		})
	case OrderFirstSeen:
		// assignments are already in index order
	}

	codes := make(map[string]int, len(classes)+2)
	for i, c := range classes {
		codes[c] = i
	}
	codes[NoTags] = len(classes)
	codes[Other] = len(classes) + 1
	return codes
}

// ClampTopN lowers topN to the number of distinct tags when it exceeds it.
// With no tags observed there is nothing to clamp against.
func ClampTopN(topN, distinct int) int {
	if distinct > 0 && topN > distinct {
		return distinct
	}
	return topN
}

// TargetNames returns class names ordered by target code
func (r *Result) TargetNames() []string {
	names := make([]string, len(r.Targets))
	for name, code := range r.Targets {
		names[code] = name
	}
	return names
}

// ClassCounts returns how many images fell into each class
func (r *Result) ClassCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range r.Assignments {
		counts[a.Class]++
	}
	return counts
}

func (tc TagCount) String() string {
	return fmt.Sprintf("%s (%d)", tc.Tag, tc.Count)
}

func sortedIndices(tagMap map[int][]string) []int {
	indices := make([]int, 0, len(tagMap))
	for idx := range tagMap {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}
