package source

import (
	"sort"
	"strings"

	"github.com/ohess/newsroom/internal/domain"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "can": true, "shall": true,
	"to": true, "of": true, "in": true, "for": true, "on": true, "with": true, "at": true,
	"by": true, "from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true, "and": true, "but": true,
	"or": true, "nor": true, "not": true, "so": true, "yet": true, "both": true,
	"either": true, "neither": true, "each": true, "every": true, "all": true, "any": true,
	"few": true, "more": true, "most": true, "other": true, "some": true, "such": true,
	"no": true, "only": true, "own": true, "same": true, "than": true, "too": true,
	"very": true, "just": true, "how": true, "what": true, "which": true, "who": true,
	"whom": true, "this": true, "that": true, "these": true, "those": true, "it": true,
	"its": true, "new": true, "about": true, "up": true, "out": true, "one": true,
	"two": true, "also": true, "like": true, "get": true, "use": true,
}

// groupEntries buckets feed entries into clusters: two entries belong
// together when their headlines share at least two meaningful words.
// Each cluster's timestamp is its earliest member's publication time.
func groupEntries(entries []feedEntry) []domain.Cluster {
	type bucket struct {
		members []int
		tokens  map[string]bool
	}

	var buckets []*bucket
	for i, e := range entries {
		tokens := headlineTokens(e.headline)

		var matched *bucket
		for _, b := range buckets {
			if sharedTokens(tokens, b.tokens) >= 2 {
				matched = b
				break
			}
		}
		if matched == nil {
			matched = &bucket{tokens: make(map[string]bool)}
			buckets = append(buckets, matched)
		}
		matched.members = append(matched.members, i)
		for t := range tokens {
			matched.tokens[t] = true
		}
	}

	clusters := make([]domain.Cluster, 0, len(buckets))
	for _, b := range buckets {
		sort.Ints(b.members)

		articles := make([]domain.SourceArticle, 0, len(b.members))
		earliest := entries[b.members[0]].published
		for _, idx := range b.members {
			e := entries[idx]
			articles = append(articles, domain.SourceArticle{
				ID:       e.url,
				Headline: e.headline,
				Body:     e.body,
			})
			if e.published.Before(earliest) {
				earliest = e.published
			}
		}

		clusters = append(clusters, domain.Cluster{
			Articles:    articles,
			PublishedAt: earliest,
		})
	}

	return clusters
}

func headlineTokens(headline string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(headline)) {
		word = strings.Trim(word, ".,!?:;\"'()-[]")
		if len(word) > 2 && !stopWords[word] {
			tokens[word] = true
		}
	}
	return tokens
}

func sharedTokens(a, b map[string]bool) int {
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}
