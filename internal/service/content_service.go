package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// urlPattern matches http/https URLs including query parameters.
var urlPattern = regexp.MustCompile(`https?://(?:[-\w.@]|(?:%[\da-fA-F]{2})|[/?=&#])+`)

// ContentService expands user-submitted text before ingestion: every URL in
// the text is replaced by the plain text behind it, fetched through the
// matching source collaborator.
type ContentService struct {
	fetchers []port.SourceFetcher
}

// NewContentService creates a content service. Fetchers are tried in the
// given order, so specialised fetchers (YouTube, Notion) must come before
// the generic web fetcher.
func NewContentService(fetchers ...port.SourceFetcher) *ContentService {
	return &ContentService{fetchers: fetchers}
}

// ExtractURLs returns all URLs found in the text.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// Expand replaces each URL in the text with its fetched content and reports
// the dominant source of the submission (the first specialised source
// encountered, else "user"). A fetch failure is recorded inline in the text
// rather than failing the whole submission; the user still keeps their note.
func (s *ContentService) Expand(ctx context.Context, text string) (string, domain.Source) {
	result := text
	detected := domain.SourceUser

	for _, url := range ExtractURLs(text) {
		fetcher := s.match(url)
		if fetcher == nil {
			continue
		}

		content, err := fetcher.Fetch(ctx, url)
		if err != nil {
			slog.Warn("source fetch failed", "url", url, "error", err)
			result = strings.Replace(result, url,
				fmt.Sprintf("\n\nError processing content from %s: %v\n\n", url, err), 1)
			continue
		}

		if detected == domain.SourceUser {
			detected = fetcher.Source()
		}
		result = strings.Replace(result, url,
			fmt.Sprintf("\n\nContent from %s:\n%s\n\n", url, content), 1)
	}

	return result, detected
}

func (s *ContentService) match(url string) port.SourceFetcher {
	for _, f := range s.fetchers {
		if f.Matches(url) {
			return f
		}
	}
	return nil
}
