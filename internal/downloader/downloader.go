// Package downloader streams long-running media downloads to disk, split
// into segments bounded by elapsed time or accumulated size.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/domain"
)

// HTTPDownloader implements segmented downloads over HTTP.
type HTTPDownloader struct {
	// client is used for short requests with an overall timeout
	client *http.Client
	// streamClient is used for streaming downloads without overall timeout
	streamClient *http.Client
	cfg    config.DownloadConfig
	retry  RetryConfig
	logger *slog.Logger
}

// New creates an HTTP-based segmented downloader.
func New(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDownloader{
		client: &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
			// No Timeout - per-read stall detection instead
		},
		cfg:    cfg,
		retry:  DefaultRetryConfig(),
		logger: logger,
	}
}

// Stats summarizes a finished download.
type Stats struct {
	Bytes    int64
	Segments int
	Elapsed  time.Duration
}

// Download streams url to disk until the source completes or an
// unrecoverable transport error occurs. A new output file starts on every
// segment boundary; namer, when non-nil, may override each proposed file
// name and its failures never abort the download.
func (d *HTTPDownloader) Download(ctx context.Context, url string, headers map[string]string, output string, seg *Segment, namer Namer) (*Stats, error) {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if free := getFreeDiskSpace(dir); free > 0 && free < d.cfg.MinFreeSpace {
		return nil, fmt.Errorf("%s: %w", dir, domain.ErrNoFreeSpace)
	}

	body, err := Retry(ctx, d.retry, func() (io.ReadCloser, error) {
		return d.openStream(ctx, url, headers)
	})
	if err != nil {
		return nil, fmt.Errorf("open stream %s: %w", url, err)
	}
	reader := newProgressReader(body, d.cfg.ReadTimeout, d.logger)
	defer reader.Close()

	start := time.Now()
	stats := &Stats{}

	sink, err := d.openSegment(output, stats.Segments, namer)
	if err != nil {
		return nil, err
	}
	stats.Segments++
	seg.Reset()

	buf := make([]byte, 32*1024)
	rotate := false
	for {
		if err := ctx.Err(); err != nil {
			sink.discard()
			return nil, err
		}

		n, readErr := reader.Read(buf)
		if n > 0 {
			// A boundary reached on the previous read starts the new
			// segment with this data, so a stream ending exactly on a
			// boundary leaves no empty file behind.
			if rotate {
				if err := sink.close(); err != nil {
					return nil, err
				}
				sink, err = d.openSegment(output, stats.Segments, namer)
				if err != nil {
					return nil, err
				}
				stats.Segments++
				seg.Reset()
				rotate = false
			}

			if _, err := sink.Write(buf[:n]); err != nil {
				sink.discard()
				return nil, fmt.Errorf("write segment %s: %w", sink.name, err)
			}
			stats.Bytes += int64(n)
			rotate = seg.Record(n)
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			sink.discard()
			return nil, fmt.Errorf("stream interrupted: %w", readErr)
		}
	}

	if err := sink.close(); err != nil {
		return nil, err
	}

	stats.Elapsed = time.Since(start)
	d.logger.Info("download completed",
		"url", url,
		"bytes", stats.Bytes,
		"segments", stats.Segments,
		"elapsed", stats.Elapsed.Round(10*time.Millisecond),
	)
	return stats, nil
}

func (d *HTTPDownloader) openStream(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// segmentSink writes one segment to a .part file and renames it on close.
type segmentSink struct {
	file *os.File
	name string
}

// openSegment derives the next segment file name, lets the namer override
// it and opens the sink.
func (d *HTTPDownloader) openSegment(output string, index int, namer Namer) (*segmentSink, error) {
	name := segmentName(output, index)
	if namer != nil {
		override, err := namer.Propose(name)
		if err != nil {
			d.logger.Error("segment naming hook failed, keeping default",
				"proposed", name, "error", err)
		} else if override != "" {
			name = override
		}
	}

	f, err := os.Create(name + ".part")
	if err != nil {
		return nil, fmt.Errorf("create segment %s: %w", name, err)
	}
	d.logger.Info("segment started", "file", name)
	return &segmentSink{file: f, name: name}, nil
}

func (s *segmentSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

func (s *segmentSink) close() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close segment %s: %w", s.name, err)
	}
	if err := os.Rename(s.name+".part", s.name); err != nil {
		return fmt.Errorf("finalize segment %s: %w", s.name, err)
	}
	return nil
}

// discard abandons a partial segment after a failure.
func (s *segmentSink) discard() {
	s.file.Close()
	os.Remove(s.name + ".part")
}

// segmentName inserts a timestamp (and, for collisions inside one second,
// the segment index) before the output extension.
func segmentName(output string, index int) string {
	ext := filepath.Ext(output)
	base := strings.TrimSuffix(output, ext)
	stamp := time.Now().Format("2006-01-02T15_04_05")
	if index == 0 {
		return fmt.Sprintf("%s_%s%s", base, stamp, ext)
	}
	return fmt.Sprintf("%s_%s_%d%s", base, stamp, index, ext)
}

// progressReader wraps the response body to log progress and detect stalls
// (no data for readTimeout).
type progressReader struct {
	reader      io.ReadCloser
	downloaded  int64
	readTimeout time.Duration
	lastRead    time.Time
	lastLog     time.Time
	logger      *slog.Logger
}

func newProgressReader(r io.ReadCloser, readTimeout time.Duration, logger *slog.Logger) *progressReader {
	now := time.Now()
	return &progressReader{
		reader:      r,
		readTimeout: readTimeout,
		lastRead:    now,
		lastLog:     now,
		logger:      logger,
	}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	if n > 0 {
		p.downloaded += int64(n)
		p.lastRead = time.Now()

		if time.Since(p.lastLog) > 30*time.Second {
			p.logger.Info("download progress", "downloaded_mb", p.downloaded/(1024*1024))
			p.lastLog = time.Now()
		}
	}

	if err == nil && p.readTimeout > 0 && time.Since(p.lastRead) > p.readTimeout {
		return n, fmt.Errorf("download stalled: no data received for %v", p.readTimeout)
	}
	return n, err
}

func (p *progressReader) Close() error {
	return p.reader.Close()
}
