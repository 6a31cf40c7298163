package source

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/mirrorhq/mirror/internal/domain"
	"github.com/mirrorhq/mirror/internal/port"
)

const youtubeMaxComments = 5

// YouTubeFetcher turns a YouTube video URL into plain text: title,
// description, and the top comments, via the YouTube Data API.
type YouTubeFetcher struct {
	apiKey string
}

var _ port.SourceFetcher = (*YouTubeFetcher)(nil)

// NewYouTubeFetcher creates a YouTube fetcher using the given API key.
func NewYouTubeFetcher(apiKey string) *YouTubeFetcher {
	return &YouTubeFetcher{apiKey: apiKey}
}

// Source reports the content source this fetcher produces.
func (f *YouTubeFetcher) Source() domain.Source {
	return domain.SourceYouTube
}

// Matches reports whether the URL is a YouTube video link.
func (f *YouTubeFetcher) Matches(url string) bool {
	return strings.Contains(url, "youtube.com") || strings.Contains(url, "youtu.be")
}

// Fetch retrieves the video's details and top comments as plain text.
func (f *YouTubeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	videoID, err := ExtractVideoID(url)
	if err != nil {
		return "", err
	}

	svc, err := youtube.NewService(ctx, option.WithAPIKey(f.apiKey))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	videoResp, err := svc.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube video %s: %w", videoID, err)
	}
	if len(videoResp.Items) == 0 {
		return "", fmt.Errorf("youtube video %s: not found", videoID)
	}
	snippet := videoResp.Items[0].Snippet

	parts := []string{
		"Title: " + snippet.Title,
		"Description: " + snippet.Description,
	}

	// Comments are best-effort; videos with comments disabled still ingest.
	commentsResp, err := svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).MaxResults(25).Order("relevance").Context(ctx).Do()
	if err == nil && len(commentsResp.Items) > 0 {
		parts = append(parts, "", "Top Comments:")
		for i, thread := range commentsResp.Items {
			if i >= youtubeMaxComments {
				break
			}
			if c := thread.Snippet.TopLevelComment; c != nil {
				parts = append(parts, "- "+c.Snippet.TextDisplay)
			}
		}
	}

	return strings.Join(parts, "\n"), nil
}

// ExtractVideoID pulls the video identifier out of a YouTube URL.
func ExtractVideoID(url string) (string, error) {
	switch {
	case strings.Contains(url, "youtu.be"):
		parts := strings.Split(strings.TrimRight(url, "/"), "/")
		id := parts[len(parts)-1]
		if i := strings.IndexAny(id, "?&"); i >= 0 {
			id = id[:i]
		}
		if id == "" {
			return "", fmt.Errorf("invalid YouTube URL: %s", url)
		}
		return id, nil
	case strings.Contains(url, "v="):
		id := strings.SplitN(url, "v=", 2)[1]
		if i := strings.IndexAny(id, "&#"); i >= 0 {
			id = id[:i]
		}
		if id == "" {
			return "", fmt.Errorf("invalid YouTube URL: %s", url)
		}
		return id, nil
	default:
		return "", fmt.Errorf("invalid YouTube URL: %s", url)
	}
}
