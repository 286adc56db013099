package pipeline

import (
	"sort"

	"evidex/models"
)

// Partition splits a bundle into one CaseBundle per detected person.
//
// Without a multi-person detection the whole bundle comes back as a single
// unnamed case. Otherwise each group gets the files its indices resolve to,
// in index order, without duplicates; unknown indices are dropped. The free
// text of a bulk submission cannot be attributed to one person and is not
// forwarded to any case.
func Partition(bundle *models.RawDocumentBundle, detection models.DetectionResult) []models.CaseBundle {
	if !detection.IsBulk() {
		return []models.CaseBundle{{
			Text:  bundle.Text,
			Files: bundle.Files,
		}}
	}

	cases := make([]models.CaseBundle, 0, len(detection.People))
	for _, group := range detection.People {
		c := models.CaseBundle{Name: group.Name}

		seen := make(map[int]bool, len(group.FileIndices))
		for _, idx := range group.FileIndices {
			if seen[idx] {
				continue
			}
			seen[idx] = true
			if f, ok := ResolveIndex(bundle, idx); ok {
				c.Files = append(c.Files, f)
			}
		}
		sort.SliceStable(c.Files, func(i, j int) bool {
			return c.Files[i].Index < c.Files[j].Index
		})

		cases = append(cases, c)
	}
	return cases
}

// ResolveIndex maps a stable index to its file. Indices below the document
// count address documents; the rest address audio, offset by that count.
func ResolveIndex(bundle *models.RawDocumentBundle, idx int) (models.OpaqueFile, bool) {
	if idx < 0 {
		return models.OpaqueFile{}, false
	}
	docs := bundle.Documents()
	if idx < len(docs) {
		return docs[idx], true
	}
	audio := bundle.Audio()
	if idx-len(docs) < len(audio) {
		return audio[idx-len(docs)], true
	}
	return models.OpaqueFile{}, false
}
