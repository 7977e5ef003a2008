package rca

import (
	"sort"
	"strings"

	"github.com/causeway-ops/causeway/internal/models"
)

// contextSeparator joins ranked document texts into one context block.
const contextSeparator = "\n\n"

// rankDocuments sorts documents by score descending (stable on ties), keeps
// at most max and concatenates their texts.
func rankDocuments(docs []models.Document, max int) string {
	if max <= 0 {
		max = 3
	}

	ranked := make([]models.Document, len(docs))
	copy(ranked, docs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}

	texts := make([]string, 0, len(ranked))
	for _, doc := range ranked {
		texts = append(texts, doc.Text)
	}
	return strings.Join(texts, contextSeparator)
}
