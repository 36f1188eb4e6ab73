// Package service drives the end-to-end upload, download and archive
// operations. Stages run linearly; the first unrecoverable failure aborts
// the whole operation with its context preserved.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/credential"
	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/internal/line"
	"github.com/bilistream/bilistream/internal/repository"
	"github.com/bilistream/bilistream/internal/uploader"
	"github.com/bilistream/bilistream/pkg/bili"
)

// UploadService runs the publish pipeline: authenticate, select line,
// upload each file, resolve the cover, submit.
type UploadService struct {
	cfg       *config.Config
	clientCfg bili.ClientConfig
	history   *repository.HistoryStore // optional
	logger    *slog.Logger
}

// NewUploadService creates the upload orchestrator. history may be nil.
func NewUploadService(cfg *config.Config, clientCfg bili.ClientConfig, history *repository.HistoryStore, logger *slog.Logger) *UploadService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadService{cfg: cfg, clientCfg: clientCfg, history: history, logger: logger}
}

// UploadRequest describes one publish operation.
type UploadRequest struct {
	CredentialFile string
	// Files are uploaded in this order; the platform renders parts in the
	// same order.
	Files []string
	// Line forces a CDN line; nil probes for the fastest one.
	Line *line.Line
	// Limit caps concurrent chunk uploads per file; 0 uses the configured
	// default.
	Limit int
	// Studio carries the publish metadata. Videos is filled by the upload.
	Studio domain.Studio
	// Submit selects the submission endpoint.
	Submit domain.Submission
}

// Upload runs the pipeline and returns the published record's bvid.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (string, error) {
	if len(req.Files) == 0 {
		return "", domain.ErrNoVideos
	}

	sess, err := credential.LoginByCookies(ctx, req.CredentialFile, s.cfg.Credential.Passphrase, s.clientCfg)
	if err != nil {
		return "", err
	}

	l := s.selectLine(ctx, req.Line)

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.Upload.Limit
	}

	var videos []domain.Video
	var totalBytes int64
	for _, path := range req.Files {
		video, size, err := s.uploadFile(ctx, sess, l, path, limit)
		if err != nil {
			// Prior parts are discarded locally; nothing is rolled back
			// remotely.
			return "", err
		}
		videos = append(videos, video)
		totalBytes += size
	}

	studio := req.Studio
	studio.Videos = videos
	applyStudioDefaults(&studio)

	if studio.Cover != "" && !isRemoteURL(studio.Cover) {
		url, err := s.resolveCover(ctx, sess, studio.Cover)
		if err != nil {
			return "", err
		}
		studio.Cover = url
	}

	result, err := s.submit(ctx, sess, &studio, req.Submit)
	if err != nil {
		return "", err
	}

	s.logger.Info("archive published", "bvid", result.Bvid, "parts", len(videos))
	s.recordHistory(ctx, repository.Record{
		Kind:       repository.KindUpload,
		Identifier: result.Bvid,
		Title:      studio.Title,
		Files:      len(videos),
		Bytes:      totalBytes,
		Line:       l.String(),
	})
	return result.Bvid, nil
}

func (s *UploadService) selectLine(ctx context.Context, explicit *line.Line) line.Line {
	if explicit != nil {
		s.logger.Info("upload line forced", "line", explicit.String())
		return *explicit
	}
	return line.NewProber(s.cfg.Upload.ProbeTimeout, s.logger).Probe(ctx)
}

func (s *UploadService) uploadFile(ctx context.Context, sess *bili.Session, l line.Line, path string, limit int) (domain.Video, int64, error) {
	vf, err := uploader.NewVideoFile(path)
	if err != nil {
		return domain.Video{}, 0, err
	}

	us, err := uploader.Preupload(ctx, sess, l, vf, s.logger)
	if err != nil {
		vf.Close()
		return domain.Video{}, 0, err
	}

	video, err := us.Upload(ctx, limit)
	if err != nil {
		return domain.Video{}, 0, err
	}
	return video, vf.Size, nil
}

// resolveCover uploads a local cover image and returns its remote URL.
func (s *UploadService) resolveCover(ctx context.Context, sess *bili.Session, path string) (string, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cover %s: %w", path, err)
	}
	url, err := sess.CoverUp(ctx, image)
	if err != nil {
		return "", fmt.Errorf("cover %s: %w", path, err)
	}
	return url, nil
}

func (s *UploadService) submit(ctx context.Context, sess *bili.Session, studio *domain.Studio, sub domain.Submission) (*bili.SubmitResult, error) {
	switch v := sub.(type) {
	case domain.SubmitApp:
		return sess.SubmitByApp(ctx, studio, v.Proxy, v.UserAgent)
	default:
		return sess.Submit(ctx, studio)
	}
}

func (s *UploadService) recordHistory(ctx context.Context, rec repository.Record) {
	if s.history == nil {
		return
	}
	if err := s.history.Add(ctx, rec); err != nil {
		s.logger.Warn("failed to record history", "error", err)
	}
}

func applyStudioDefaults(studio *domain.Studio) {
	if studio.Tid == 0 {
		studio.Tid = 171
	}
	if studio.Copyright == 0 {
		studio.Copyright = 2
	}
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
