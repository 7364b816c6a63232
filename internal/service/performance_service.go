package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ad-tracker/performance-snapshots-go/internal/merge"
	"github.com/ad-tracker/performance-snapshots-go/internal/models"
	"github.com/ad-tracker/performance-snapshots-go/pkg/logger"
)

// ErrVideoSourceUnavailable is returned when no live video source is configured.
var ErrVideoSourceUnavailable = errors.New("video source is not configured")

// VideoSource fetches live video records for a channel.
type VideoSource interface {
	FetchChannelVideos(ctx context.Context, channelID string, limit int) ([]models.VideoRecord, error)
}

// PerformanceService combines live video records with stored snapshots.
type PerformanceService struct {
	engine *merge.Engine
	videos VideoSource
	log    *zap.Logger
}

// NewPerformanceService creates a new PerformanceService. videos may be nil, in which case
// only caller-supplied records can be merged.
func NewPerformanceService(engine *merge.Engine, videos VideoSource) *PerformanceService {
	return &PerformanceService{
		engine: engine,
		videos: videos,
		log:    logger.Named("performance"),
	}
}

// HasVideoSource reports whether ChannelPerformance can fetch live records.
func (s *PerformanceService) HasVideoSource() bool {
	return s.videos != nil
}

// MergeVideos merges caller-supplied records with the latest snapshot.
func (s *PerformanceService) MergeVideos(
	ctx context.Context,
	videos []models.VideoRecord,
	includeDeltas bool,
) (*models.MergeResult, error) {
	for i, video := range videos {
		if video.Title == "" {
			return nil, &ValidationError{
				Message: "invalid video records",
				Details: []string{fmt.Sprintf("videos[%d].title is required", i)},
			}
		}
	}

	result, err := s.engine.Merge(ctx, videos, merge.MergeOptions{IncludeDeltas: includeDeltas})
	if err != nil {
		return nil, &ProcessingError{Message: "failed to merge videos", Cause: err}
	}

	return result, nil
}

// ChannelPerformance fetches a channel's recent uploads and merges them with the latest snapshot.
func (s *PerformanceService) ChannelPerformance(
	ctx context.Context,
	channelID string,
	limit int,
	includeDeltas bool,
) (*models.MergeResult, error) {
	if s.videos == nil {
		return nil, ErrVideoSourceUnavailable
	}
	if channelID == "" {
		return nil, &ValidationError{Message: "channel ID is required"}
	}

	videos, err := s.videos.FetchChannelVideos(ctx, channelID, limit)
	if err != nil {
		s.log.Error("Failed to fetch channel videos",
			zap.Error(err),
			zap.String("channelId", channelID),
		)
		return nil, &ProcessingError{Message: "failed to fetch channel videos", Cause: err}
	}

	s.log.Debug("Fetched channel videos",
		zap.String("channelId", channelID),
		zap.Int("videos", len(videos)),
	)

	return s.MergeVideos(ctx, videos, includeDeltas)
}
