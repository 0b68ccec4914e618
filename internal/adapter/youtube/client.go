// Package youtube fetches top-level comments of a video through the YouTube Data API.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"murmur/internal/comment"
)

// pageSize is the maximum commentThreads.list accepts.
const pageSize = 100

var ErrMissingAPIKey = errors.New("youtube api key not configured")

type Client struct {
	svc *yt.Service
}

func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// FetchComments pages through every comment thread of videoID and returns the
// top-level comments in API order.
func (c *Client) FetchComments(ctx context.Context, videoID string) ([]comment.RawRecord, error) {
	if videoID == "" {
		return nil, errors.New("video id is required")
	}
	start := time.Now()

	call := c.svc.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(pageSize).
		TextFormat("plainText")

	var (
		records []comment.RawRecord
		pages   int
	)
	err := call.Pages(ctx, func(resp *yt.CommentThreadListResponse) error {
		pages++
		for _, item := range resp.Items {
			if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
				continue
			}
			records = append(records, toRecord(item.Snippet.TopLevelComment.Snippet))
		}
		slog.DebugContext(ctx, "comment page fetched", "video_id", videoID, "page", pages, "items", len(resp.Items))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s: %w", videoID, err)
	}

	slog.InfoContext(ctx, "comments fetched", "video_id", videoID, "count", len(records), "pages", pages, "duration", time.Since(start))
	return records, nil
}

func toRecord(s *yt.CommentSnippet) comment.RawRecord {
	likes := int(s.LikeCount)
	r := comment.RawRecord{
		Author:    s.AuthorDisplayName,
		Text:      s.TextDisplay,
		LikeCount: &likes,
		Fields: []comment.Field{
			{Name: "author", Value: s.AuthorDisplayName},
			{Name: "comment", Value: s.TextDisplay},
			{Name: "like_count", Value: strconv.Itoa(likes)},
			{Name: "published_at", Value: s.PublishedAt},
		},
	}
	if ts, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
		r.PublishedAt = &ts
	}
	return r
}
