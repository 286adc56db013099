package pipeline

import (
	"testing"

	"evidex/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedBundle() *models.RawDocumentBundle {
	return &models.RawDocumentBundle{
		Text: "shared notes",
		Files: []models.OpaqueFile{
			pdf(0, "p0"), pdf(1, "p1"), pdf(2, "p2"),
			audio(3, "a0"), audio(4, "a1"),
		},
	}
}

func TestPartitionSingleKeepsWholeBundle(t *testing.T) {
	bundle := mixedBundle()
	cases := Partition(bundle, models.DetectionResult{People: []models.PersonGroup{}})

	require.Len(t, cases, 1)
	assert.Empty(t, cases[0].Name)
	assert.Equal(t, "shared notes", cases[0].Text)
	assert.Equal(t, bundle.Files, cases[0].Files)
}

func TestPartitionIndexSpaceSpansDocumentsAndAudio(t *testing.T) {
	bundle := mixedBundle()
	cases := Partition(bundle, models.DetectionResult{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{1, 4}},
			{Name: "Bob", FileIndices: []int{0, 2, 3}},
		},
	})

	require.Len(t, cases, 2)
	assert.Equal(t, "Alice", cases[0].Name)
	require.Len(t, cases[0].Files, 2)
	assert.Equal(t, "p1", cases[0].Files[0].Name)
	assert.Equal(t, "a1", cases[0].Files[1].Name)
	assert.Empty(t, cases[0].Text)
}

func TestResolveIndex(t *testing.T) {
	bundle := mixedBundle()

	f, ok := ResolveIndex(bundle, 4)
	require.True(t, ok)
	assert.Equal(t, "a1", f.Name)

	f, ok = ResolveIndex(bundle, 3)
	require.True(t, ok)
	assert.Equal(t, "a0", f.Name)

	_, ok = ResolveIndex(bundle, 5)
	assert.False(t, ok)
	_, ok = ResolveIndex(bundle, -1)
	assert.False(t, ok)
}

func TestPartitionDedupesSortsAndDropsUnknown(t *testing.T) {
	bundle := mixedBundle()
	cases := Partition(bundle, models.DetectionResult{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{2, 0, 2, 9}},
			{Name: "Bob", FileIndices: []int{}},
		},
	})

	require.Len(t, cases, 2)
	var names []string
	for _, f := range cases[0].Files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"p0", "p2"}, names)
	assert.True(t, cases[1].IsEmpty())
}

func TestPartitionEveryFileBelongsToItsGroups(t *testing.T) {
	bundle := mixedBundle()
	detection := models.DetectionResult{
		MultiplePeople: true,
		People: []models.PersonGroup{
			{Name: "Alice", FileIndices: []int{0, 3}},
			{Name: "Bob", FileIndices: []int{1, 2, 4}},
		},
	}
	cases := Partition(bundle, detection)

	seen := map[int]int{}
	for i, c := range cases {
		for _, f := range c.Files {
			assert.Contains(t, detection.People[i].FileIndices, f.Index)
			seen[f.Index]++
		}
	}
	assert.Len(t, seen, len(bundle.Files))
	for idx, n := range seen {
		assert.Equal(t, 1, n, "file %d assigned more than once", idx)
	}
}
