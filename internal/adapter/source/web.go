// Package source contains the collaborators that turn external URLs into
// plain text for ingestion: web pages, YouTube videos, and Notion pages.
package source

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

const webUserAgent = "Mozilla/5.0 (compatible; MirrorBot/1.0)"

// WebFetcher scrapes the readable text of an arbitrary web page.
type WebFetcher struct {
	httpClient *http.Client
}

var _ port.SourceFetcher = (*WebFetcher)(nil)

// NewWebFetcher creates a web page fetcher.
func NewWebFetcher() *WebFetcher {
	return &WebFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Source reports the content source this fetcher produces.
func (f *WebFetcher) Source() domain.Source {
	return domain.SourceWeb
}

// Matches accepts any http(s) URL; the web fetcher is the fallback when no
// specialised fetcher claims the URL.
func (f *WebFetcher) Matches(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// Fetch downloads the page and extracts its readable text.
func (f *WebFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	text := ExtractText(string(body))
	if text == "" {
		return "", fmt.Errorf("fetch %s: no readable content", url)
	}
	return text, nil
}

// Pre-compiled regular expressions for HTML text extraction.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag  = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag       = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag       = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	footerTag    = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	headerTag    = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)
	allTags      = regexp.MustCompile(`<[^>]+>`)
	whitespace   = regexp.MustCompile(`\s+`)

	// Preferred content containers, tried in order.
	contentContainers = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<article[^>]*>(.*?)</article>`),
		regexp.MustCompile(`(?is)<main[^>]*>(.*?)</main>`),
		regexp.MustCompile(`(?is)<div[^>]+(?:id="content"|class="[^"]*\b(?:content|post-content|article-content)\b[^"]*")[^>]*>(.*?)</div>`),
	}
)

// ExtractText strips an HTML page down to its readable text: chrome
// elements removed, the main content container preferred when one exists,
// entities unescaped, whitespace collapsed.
func ExtractText(page string) string {
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, navTag, footerTag, headerTag, htmlComments} {
		page = re.ReplaceAllString(page, " ")
	}

	content := page
	for _, re := range contentContainers {
		if m := re.FindStringSubmatch(page); m != nil && strings.TrimSpace(allTags.ReplaceAllString(m[1], " ")) != "" {
			content = m[1]
			break
		}
	}

	text := allTags.ReplaceAllString(content, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}
