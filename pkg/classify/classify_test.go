package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "skinscraper/pkg/errors"
)

func TestClassifyMixedCaseScenario(t *testing.T) {
	tagMap := map[int][]string{
		0: {"Dragon", "dragon"},
		1: {"Cat"},
		2: {},
	}

	res, err := Classify(tagMap, 1, OrderAlphabetical)
	require.NoError(t, err)

	assert.Equal(t, []TagCount{{"Dragon", 2}, {"Cat", 1}}, res.Frequencies)
	assert.Equal(t, []Assignment{
		{Index: 0, PopularTag: "Dragon", Class: "Dragon", Target: 0},
		{Index: 1, PopularTag: "Cat", Class: Other, Target: 2},
		{Index: 2, PopularTag: NoTags, Class: NoTags, Target: 1},
	}, res.Assignments)
	assert.Equal(t, []string{"Dragon", NoTags, Other}, res.TargetNames())
}

func TestFrequencyTiesKeepFirstSeenOrder(t *testing.T) {
	tagMap := map[int][]string{
		0: {"zombie", "Knight"},
		1: {"knight", "Alex"},
		2: {"alex", "ZOMBIE", "pirate"},
	}

	assert.Equal(t, []TagCount{
		{"zombie", 2},
		{"Knight", 2},
		{"Alex", 2},
		{"pirate", 1},
	}, Frequencies(tagMap))
}

func TestPopularTagTieUsesItemOrder(t *testing.T) {
	tagMap := map[int][]string{
		0: {"a", "b"},
		1: {"b", "a"},
		2: {"c", "a"},
	}

	res, err := Classify(tagMap, 3, OrderAlphabetical)
	require.NoError(t, err)

	// a has 3, b has 2, c has 1
	assert.Equal(t, "a", res.Assignments[0].PopularTag)
	assert.Equal(t, "a", res.Assignments[1].PopularTag)
	assert.Equal(t, "a", res.Assignments[2].PopularTag)

	tied := map[int][]string{
		0: {"x", "y"},
		1: {"y", "x"},
	}
	res, err = Classify(tied, 2, OrderAlphabetical)
	require.NoError(t, err)
	assert.Equal(t, "x", res.Assignments[0].PopularTag)
	assert.Equal(t, "y", res.Assignments[1].PopularTag)
}

func TestTopNCoveringAllTagsNeverBucketsOther(t *testing.T) {
	tagMap := map[int][]string{
		0: {"red"},
		1: {"blue", "green"},
		2: {"green"},
		3: {"yellow"},
		4: nil,
	}
	distinct := len(Frequencies(tagMap))

	res, err := Classify(tagMap, distinct, OrderFirstSeen)
	require.NoError(t, err)

	for _, a := range res.Assignments {
		assert.NotEqual(t, Other, a.Class, "image %d", a.Index)
		assert.Equal(t, a.PopularTag, a.Class)
	}
}

func TestAllEmptyTagLists(t *testing.T) {
	tagMap := map[int][]string{0: {}, 1: nil, 2: {}}

	res, err := Classify(tagMap, DefaultTopN, OrderAlphabetical)
	require.NoError(t, err)

	assert.Empty(t, res.Frequencies)
	require.Len(t, res.Assignments, 3)
	for _, a := range res.Assignments {
		assert.Equal(t, NoTags, a.Class)
		assert.Equal(t, 0, a.Target)
	}
	assert.Equal(t, map[string]int{NoTags: 0, Other: 1}, res.Targets)
}

func TestEmptyTagMap(t *testing.T) {
	res, err := Classify(map[int][]string{}, 5, OrderAlphabetical)
	require.NoError(t, err)
	assert.Empty(t, res.Frequencies)
	assert.Empty(t, res.Assignments)
}

func TestInvalidTopN(t *testing.T) {
	tagMap := map[int][]string{0: {"a"}, 1: {"b"}}

	tests := []struct {
		name string
		topN int
	}{
		{"zero", 0},
		{"negative", -2},
		{"above distinct", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tagMap, tt.topN, OrderAlphabetical)
			assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))
		})
	}
}

func TestTargetOrders(t *testing.T) {
	tagMap := map[int][]string{
		0: {"zebra"},
		1: {"apple"},
		2: {"mango"},
		3: {"mango"},
		4: {"apple"},
		5: {"mango"},
	}

	tests := []struct {
		order Order
		want  []string
	}{
		{OrderAlphabetical, []string{"apple", "mango", "zebra", NoTags, Other}},
		{OrderFirstSeen, []string{"zebra", "apple", "mango", NoTags, Other}},
		{OrderFrequency, []string{"mango", "apple", "zebra", NoTags, Other}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			res, err := Classify(tagMap, 3, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.TargetNames())
			for _, a := range res.Assignments {
				assert.Equal(t, res.Targets[a.Class], a.Target)
			}
		})
	}
}

func TestParseOrder(t *testing.T) {
	for in, want := range map[string]Order{
		"":             OrderAlphabetical,
		"Alphabetical": OrderAlphabetical,
		"first-seen":   OrderFirstSeen,
		"first_seen":   OrderFirstSeen,
		"frequency":    OrderFrequency,
	} {
		got, err := ParseOrder(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseOrder("random")
	assert.True(t, errs.IsType(err, errs.ErrorTypeConfiguration))

	_, err = Classify(map[int][]string{0: {"a"}}, 1, Order("random"))
	assert.Error(t, err)
}

func TestClampTopN(t *testing.T) {
	assert.Equal(t, 3, ClampTopN(10, 3))
	assert.Equal(t, 2, ClampTopN(2, 3))
	assert.Equal(t, 10, ClampTopN(10, 0))
}

func TestClassCounts(t *testing.T) {
	res, err := Classify(map[int][]string{0: {"a"}, 1: {"a"}, 2: {"b"}, 3: {}}, 1, OrderAlphabetical)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, Other: 1, NoTags: 1}, res.ClassCounts())
}
