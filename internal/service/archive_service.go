package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/credential"
	"github.com/bilistream/bilistream/pkg/bili"
)

// ArchiveService covers the secondary operations on published records:
// fetch, edit, list and delete, all under the same session handling as
// uploads.
type ArchiveService struct {
	cfg       *config.Config
	clientCfg bili.ClientConfig
	logger    *slog.Logger
}

// NewArchiveService creates the archive operations service.
func NewArchiveService(cfg *config.Config, clientCfg bili.ClientConfig, logger *slog.Logger) *ArchiveService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveService{cfg: cfg, clientCfg: clientCfg, logger: logger}
}

func (s *ArchiveService) login(ctx context.Context, credentialFile string) (*bili.Session, error) {
	return credential.LoginByCookies(ctx, credentialFile, s.cfg.Credential.Passphrase, s.clientCfg)
}

// Fetch retrieves a record's current server-side metadata as JSON.
func (s *ArchiveService) Fetch(ctx context.Context, credentialFile, bvid string) (json.RawMessage, error) {
	sess, err := s.login(ctx, credentialFile)
	if err != nil {
		return nil, err
	}
	return sess.VideoData(ctx, bvid)
}

// EditRequest holds the optional overrides for one edit. Empty fields leave
// the current value unchanged.
type EditRequest struct {
	Title string
	Cover string // local path or remote url
	Tag   string
}

// Edit fetches the record's current state, overlays the supplied fields and
// resubmits. A non-zero platform code is a semantic failure even when the
// HTTP call succeeded (surfaced as *bili.APIError).
func (s *ArchiveService) Edit(ctx context.Context, credentialFile, bvid string, req EditRequest) (json.RawMessage, error) {
	sess, err := s.login(ctx, credentialFile)
	if err != nil {
		return nil, err
	}

	studio, err := sess.StudioData(ctx, bvid)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		studio.Title = req.Title
	}
	if req.Tag != "" {
		studio.Tag = req.Tag
	}
	if req.Cover != "" {
		cover := req.Cover
		if !isRemoteURL(cover) {
			image, err := os.ReadFile(cover)
			if err != nil {
				return nil, fmt.Errorf("cover %s: %w", cover, err)
			}
			if cover, err = sess.CoverUp(ctx, image); err != nil {
				return nil, fmt.Errorf("cover %s: %w", req.Cover, err)
			}
		}
		studio.Cover = cover
	}

	raw, err := sess.Edit(ctx, studio)
	if err != nil {
		return nil, err
	}
	s.logger.Info("archive edited", "bvid", bvid)
	return raw, nil
}

// List returns one page of published records filtered by status.
func (s *ArchiveService) List(ctx context.Context, credentialFile, status string, page int) (json.RawMessage, error) {
	sess, err := s.login(ctx, credentialFile)
	if err != nil {
		return nil, err
	}
	return sess.Archives(ctx, status, page)
}

// Delete removes a published record.
func (s *ArchiveService) Delete(ctx context.Context, credentialFile, bvid string) error {
	sess, err := s.login(ctx, credentialFile)
	if err != nil {
		return err
	}
	if err := sess.Delete(ctx, bvid); err != nil {
		return err
	}
	s.logger.Info("archive deleted", "bvid", bvid)
	return nil
}
