package service

import (
	"context"
	"log/slog"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/downloader"
	"github.com/bilistream/bilistream/internal/repository"
)

// DownloadService runs segmented downloads and records them in the local
// history.
type DownloadService struct {
	dl      *downloader.HTTPDownloader
	history *repository.HistoryStore // optional
	logger  *slog.Logger
}

// NewDownloadService creates the download orchestrator. history may be nil.
func NewDownloadService(cfg config.DownloadConfig, history *repository.HistoryStore, logger *slog.Logger) *DownloadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadService{
		dl:      downloader.New(cfg, logger),
		history: history,
		logger:  logger,
	}
}

// DownloadRequest describes one segmented download.
type DownloadRequest struct {
	URL     string
	Headers map[string]string
	// Output is the file name template; each segment inserts a timestamp
	// before its extension.
	Output string
	// Segment decides the boundaries (by time or by size).
	Segment *downloader.Segment
	// Namer optionally overrides each segment's file name. May be nil.
	Namer downloader.Namer
}

// Download streams the source to disk until completion or the first
// unrecoverable transport error.
func (s *DownloadService) Download(ctx context.Context, req DownloadRequest) (*downloader.Stats, error) {
	stats, err := s.dl.Download(ctx, req.URL, req.Headers, req.Output, req.Segment, req.Namer)
	if err != nil {
		return nil, err
	}

	if s.history != nil {
		rec := repository.Record{
			Kind:       repository.KindDownload,
			Identifier: req.URL,
			Files:      stats.Segments,
			Bytes:      stats.Bytes,
			Elapsed:    stats.Elapsed,
		}
		if histErr := s.history.Add(ctx, rec); histErr != nil {
			s.logger.Warn("failed to record history", "error", histErr)
		}
	}
	return stats, nil
}
