package source

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	thinBodyThreshold = 200
	maxEnrichPerRun   = 10
)

// enricher fills in article bodies that the feed itself did not carry,
// by fetching the page and extracting readable text.
type enricher struct {
	client *http.Client
}

func newEnricher(timeout time.Duration) *enricher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &enricher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// enrich fetches page text for entries with thin bodies, in place. A
// failing domain is skipped for the rest of the run; extraction failures
// leave the feed body as-is.
func (e *enricher) enrich(ctx context.Context, entries []feedEntry) {
	failedDomains := make(map[string]struct{})
	fetched := 0

	for i := range entries {
		if fetched >= maxEnrichPerRun {
			return
		}
		if len(entries[i].body) >= thinBodyThreshold {
			continue
		}

		u, _ := url.Parse(entries[i].url)
		host := ""
		if u != nil {
			host = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[host]; failed {
			continue
		}

		text, err := e.fetchPageText(ctx, entries[i].url)
		if err != nil {
			if host != "" {
				failedDomains[host] = struct{}{}
			}
			log.Printf("Enrich failed for %s, skipping remaining from %s", entries[i].url, host)
			continue
		}
		fetched++
		if text != "" {
			entries[i].body = text
		}
	}
}

func (e *enricher) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "newsroom/1.0 (news aggregator)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	parsedURL, _ := url.Parse(pageURL)
	page, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(page.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
