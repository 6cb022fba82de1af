package source

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ohess/newsroom/internal/config"
	"github.com/ohess/newsroom/internal/domain"
)

const maxPerFeed = 30

// Source delivers raw article clusters for a locale. A Fetch error means
// the upstream could not be reached; partial results are never returned
// alongside an error.
type Source interface {
	Fetch(ctx context.Context, locale domain.Locale) ([]domain.Cluster, error)
}

// FeedSource builds clusters from the RSS/Atom feeds configured per locale.
type FeedSource struct {
	feeds    map[string][]config.Feed
	parser   *gofeed.Parser
	enricher *enricher
}

// NewFeedSource creates a feed source for the configured locales.
func NewFeedSource(locales []config.LocaleConfig) *FeedSource {
	feeds := make(map[string][]config.Feed, len(locales))
	for _, lc := range locales {
		feeds[lc.Locale().Key()] = lc.Feeds
	}
	return &FeedSource{
		feeds:    feeds,
		parser:   gofeed.NewParser(),
		enricher: newEnricher(0),
	}
}

// Fetch parses the locale's feeds, enriches thin entries with extracted
// page text, and groups entries into clusters by headline overlap.
func (s *FeedSource) Fetch(ctx context.Context, locale domain.Locale) ([]domain.Cluster, error) {
	var entries []feedEntry
	for _, fc := range s.feeds[locale.Key()] {
		parsed, err := s.parseFeed(ctx, fc.URL)
		if err != nil {
			log.Printf("Failed to parse feed %s: %v", fc.URL, err)
			continue
		}
		entries = append(entries, parsed...)
		log.Printf("Parsed %d entries from %s", len(parsed), fc.URL)
	}

	s.enricher.enrich(ctx, entries)

	clusters := groupEntries(entries)
	log.Printf("[%s] %d feed entries grouped into %d clusters", locale.Key(), len(entries), len(clusters))
	return clusters, nil
}

type feedEntry struct {
	url       string
	headline  string
	body      string
	published time.Time
}

func (s *FeedSource) parseFeed(ctx context.Context, feedURL string) ([]feedEntry, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []feedEntry
	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}

		itemURL := item.Link
		if itemURL == "" {
			itemURL = item.GUID
		}
		title := strings.TrimSpace(item.Title)
		if itemURL == "" || title == "" {
			continue
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		} else if item.UpdatedParsed != nil {
			published = item.UpdatedParsed.UTC()
		}

		body := ""
		if item.Content != "" {
			body = stripHTML(item.Content)
		} else if item.Description != "" {
			body = stripHTML(item.Description)
		}

		entries = append(entries, feedEntry{
			url:       itemURL,
			headline:  title,
			body:      body,
			published: published,
		})
	}

	return entries, nil
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	return strings.Join(strings.Fields(s), " ")
}
