package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

// NotionFetcher pulls Notion pages down to plain text: a page per URL, or
// every page of the configured database for a workspace sync.
type NotionFetcher struct {
	client     *notionapi.Client
	databaseID string
}

var _ port.SourceFetcher = (*NotionFetcher)(nil)

// NewNotionFetcher creates a Notion fetcher with the integration token and
// the workspace database used for full syncs.
func NewNotionFetcher(token, databaseID string) *NotionFetcher {
	return &NotionFetcher{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: databaseID,
	}
}

// Source reports the content source this fetcher produces.
func (f *NotionFetcher) Source() domain.Source {
	return domain.SourceNotion
}

// Matches reports whether the URL points at a Notion page.
func (f *NotionFetcher) Matches(url string) bool {
	return strings.Contains(url, "notion.so") || strings.Contains(url, "notion.site")
}

var notionPageID = regexp.MustCompile(`[0-9a-f]{32}`)

// Fetch walks the page's blocks and returns their plain text.
func (f *NotionFetcher) Fetch(ctx context.Context, url string) (string, error) {
	id := notionPageID.FindString(strings.ToLower(url))
	if id == "" {
		return "", fmt.Errorf("invalid Notion URL: %s", url)
	}
	return f.pageText(ctx, id)
}

// PageContent is one synced Notion page: its title and plain text.
type PageContent struct {
	PageID string
	Title  string
	Text   string
}

// DatabasePages returns the text of every page in the configured database.
// Used by the full-workspace sync endpoint.
func (f *NotionFetcher) DatabasePages(ctx context.Context) ([]PageContent, error) {
	if f.databaseID == "" {
		return nil, fmt.Errorf("notion database id not configured")
	}

	var pages []PageContent
	req := &notionapi.DatabaseQueryRequest{PageSize: 100}
	for {
		resp, err := f.client.Database.Query(ctx, notionapi.DatabaseID(f.databaseID), req)
		if err != nil {
			return nil, fmt.Errorf("notion database query: %w", err)
		}

		for _, page := range resp.Results {
			text, err := f.pageText(ctx, string(page.ID))
			if err != nil {
				return nil, err
			}
			pages = append(pages, PageContent{
				PageID: string(page.ID),
				Title:  pageTitle(page),
				Text:   text,
			})
		}

		if !resp.HasMore {
			return pages, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// pageText walks the page's block children and flattens them to text.
func (f *NotionFetcher) pageText(ctx context.Context, pageID string) (string, error) {
	var lines []string
	pagination := &notionapi.Pagination{PageSize: 100}
	for {
		resp, err := f.client.Block.GetChildren(ctx, notionapi.BlockID(pageID), pagination)
		if err != nil {
			return "", fmt.Errorf("notion blocks for %s: %w", pageID, err)
		}

		for _, block := range resp.Results {
			if text := blockText(block); text != "" {
				lines = append(lines, text)
			}
		}

		if !resp.HasMore {
			break
		}
		pagination.StartCursor = notionapi.Cursor(resp.NextCursor)
	}
	return strings.Join(lines, "\n"), nil
}

// blockText extracts the plain text from the block types that carry prose.
func blockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richText(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return richText(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		return richText(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		return richText(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		return richText(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		return richText(b.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		return richText(b.ToDo.RichText)
	case *notionapi.QuoteBlock:
		return richText(b.Quote.RichText)
	case *notionapi.CalloutBlock:
		return richText(b.Callout.RichText)
	case *notionapi.CodeBlock:
		return richText(b.Code.RichText)
	default:
		return ""
	}
}

func richText(parts []notionapi.RichText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return sb.String()
}

// pageTitle digs the title property out of a database page.
func pageTitle(page notionapi.Page) string {
	for _, prop := range page.Properties {
		if title, ok := prop.(*notionapi.TitleProperty); ok {
			return richText(title.Title)
		}
	}
	return ""
}
