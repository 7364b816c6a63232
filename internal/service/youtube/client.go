// Package youtube fetches live video records from the YouTube Data API v3.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// maxBatchSize is the most IDs videos.list and search.list accept per call.
const maxBatchSize = 50

// ErrClientClosed is returned by calls made after Close.
var ErrClientClosed = errors.New("youtube client is closed")

// ClientConfig configures a Client. Exactly one credential is used: TokenSource takes
// precedence over APIKey, and HTTPClient (when set) is used as-is with neither.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	MaxResults  int
}

// Client wraps the YouTube Data API v3 client.
type Client struct {
	service    *youtube.Service
	maxResults int
	log        *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a new YouTube API client.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	var opts []option.ClientOption

	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(cfg.TokenSource))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, fmt.Errorf("YouTube API key or token source is required")
	}

	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > maxBatchSize {
		maxResults = maxBatchSize
	}

	return &Client{
		service:    service,
		maxResults: maxResults,
		log:        logger.Named("youtube"),
	}, nil
}

// Close releases the client. Later calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	return nil
}

// FetchChannelVideos returns up to limit of the channel's most recent uploads with statistics,
// newest first. A non-positive limit uses the configured MaxResults.
func (c *Client) FetchChannelVideos(ctx context.Context, channelID string, limit int) ([]models.VideoRecord, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if channelID == "" {
		return nil, fmt.Errorf("channel ID is required")
	}
	if limit <= 0 {
		limit = c.maxResults
	}

	var (
		videoIDs  []string
		pageToken string
	)

	for len(videoIDs) < limit {
		call := c.service.Search.List([]string{"id"}).
			ChannelId(channelID).
			Type("video").
			Order("date").
			MaxResults(int64(min(limit-len(videoIDs), maxBatchSize))).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to search channel videos: %w", err)
		}

		for _, item := range response.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				videoIDs = append(videoIDs, item.Id.VideoId)
			}
		}

		if response.NextPageToken == "" || len(response.Items) == 0 {
			break
		}
		pageToken = response.NextPageToken
	}

	c.log.Debug("Resolved channel uploads",
		zap.String("channelId", channelID),
		zap.Int("videos", len(videoIDs)),
	)

	if len(videoIDs) == 0 {
		return []models.VideoRecord{}, nil
	}

	return c.FetchVideos(ctx, videoIDs)
}

// FetchVideos returns records for videoIDs in the order given. IDs the API does not
// return (deleted or private videos) are omitted.
func (c *Client) FetchVideos(ctx context.Context, videoIDs []string) ([]models.VideoRecord, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if len(videoIDs) == 0 {
		return nil, fmt.Errorf("no video IDs provided")
	}

	byID := make(map[string]models.VideoRecord, len(videoIDs))

	for _, batch := range BatchVideoIDs(videoIDs, maxBatchSize) {
		response, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
			Id(batch...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch videos from YouTube API: %w", err)
		}

		for _, item := range response.Items {
			byID[item.Id] = mapVideo(item)
		}
	}

	records := make([]models.VideoRecord, 0, len(byID))
	for _, id := range videoIDs {
		if record, ok := byID[id]; ok {
			records = append(records, record)
			delete(byID, id)
		}
	}

	return records, nil
}

// mapVideo converts an API video to a record. The Data API exposes lifetime views only,
// so the 24h and 7d window metrics stay zero, as do impressions and click-through rate.
func mapVideo(video *youtube.Video) models.VideoRecord {
	record := models.VideoRecord{VideoID: video.Id}

	if video.Snippet != nil {
		record.Title = video.Snippet.Title
		if video.Snippet.PublishedAt != "" {
			if t, err := parseYouTubeTime(video.Snippet.PublishedAt); err == nil {
				record.PublishedAt = &t
			}
		}
	}

	if video.ContentDetails != nil && video.ContentDetails.Duration != "" {
		if seconds, err := ParseVideoDuration(video.ContentDetails.Duration); err == nil {
			record.DurationSeconds = seconds
		}
	}

	if video.Statistics != nil {
		record.LifetimeViews = int64(video.Statistics.ViewCount) //nolint:gosec // view counts fit in int64
	}

	return record
}

// parseYouTubeTime parses RFC3339 timestamps from YouTube API
func parseYouTubeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// BatchVideoIDs splits a large list of video IDs into batches of 50
func BatchVideoIDs(videoIDs []string, batchSize int) [][]string {
	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	var batches [][]string
	for i := 0; i < len(videoIDs); i += batchSize {
		end := min(i+batchSize, len(videoIDs))
		batches = append(batches, videoIDs[i:end])
	}

	return batches
}

// ParseVideoDuration converts ISO 8601 duration to seconds
// Example: "PT4M13S" -> 253 seconds
func ParseVideoDuration(duration string) (int, error) {
	if !strings.HasPrefix(duration, "PT") {
		return 0, fmt.Errorf("invalid duration format: %s", duration)
	}

	duration = strings.TrimPrefix(duration, "PT")

	var total int
	for _, unit := range []struct {
		marker     string
		multiplier int
	}{
		{"H", 3600},
		{"M", 60},
		{"S", 1},
	} {
		idx := strings.Index(duration, unit.marker)
		if idx == -1 {
			continue
		}

		n, err := strconv.Atoi(duration[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid duration component %q: %w", duration[:idx+1], err)
		}
		total += n * unit.multiplier
		duration = duration[idx+1:]
	}

	if duration != "" {
		return 0, fmt.Errorf("invalid duration format: trailing %q", duration)
	}

	return total, nil
}
