// Package uploader streams video files to the upos CDN in bounded-size
// chunks with a caller-set concurrency cap.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/internal/line"
	"github.com/bilistream/bilistream/pkg/bili"
)

// UploadSession is a negotiated transport slot for one file.
type UploadSession struct {
	client   *http.Client
	logger   *slog.Logger
	file     *VideoFile
	pre      *bili.Preupload
	base     string // endpoint + upos path
	uploadID string
}

type initUploadData struct {
	OK       int    `json:"OK"`
	UploadID string `json:"upload_id"`
}

type finishPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// Preupload negotiates an upload slot for the file on the selected line and
// opens the multipart upload on the CDN endpoint.
func Preupload(ctx context.Context, sess *bili.Session, l line.Line, vf *VideoFile, logger *slog.Logger) (*UploadSession, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pre, err := sess.Preupload(ctx, vf.Name, vf.Size, l.Upcdn())
	if err != nil {
		return nil, fmt.Errorf("preupload %s: %w", vf.Name, err)
	}

	u := &UploadSession{
		// No overall timeout: chunk PUTs are long-running. The response
		// header timeout bounds a dead endpoint.
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
		},
		logger: logger,
		file:   vf,
		pre:    pre,
		base:   endpointURL(pre.Endpoint) + uposPath(pre.UposURI),
	}

	if err := u.initUpload(ctx); err != nil {
		return nil, fmt.Errorf("init upload %s: %w", vf.Name, err)
	}
	return u, nil
}

// initUpload opens the multipart upload and records the upload id.
func (u *UploadSession) initUpload(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+"?uploads&output=json", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Upos-Auth", u.pre.Auth)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var data initUploadData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if data.UploadID == "" {
		return fmt.Errorf("%w: upload_id", domain.ErrMissingField)
	}
	u.uploadID = data.UploadID
	return nil
}

// Upload streams the file in chunks with at most limit concurrent PUTs in
// flight, then completes the multipart upload. The file handle is closed on
// return. Throughput is logged as a side effect.
func (u *UploadSession) Upload(ctx context.Context, limit int) (domain.Video, error) {
	defer u.file.Close()

	if limit < 1 {
		limit = 1
	}

	chunkSize := u.pre.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 10 * 1024 * 1024
	}
	chunks := int((u.file.Size + chunkSize - 1) / chunkSize)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	// Chunks are read sequentially here and uploaded concurrently by the
	// group; SetLimit bounds in-flight PUTs and blocks further reads, which
	// also bounds buffered memory to limit*chunkSize.
	var offset int64
	var readErr error
readLoop:
	for i := 0; i < chunks; i++ {
		select {
		case <-gctx.Done():
			break readLoop
		default:
		}

		n := chunkSize
		if remaining := u.file.Size - offset; remaining < n {
			n = remaining
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(u.file, buf); err != nil {
			readErr = fmt.Errorf("read chunk %d: %w", i, err)
			break readLoop
		}

		chunkIndex, chunkStart := i, offset
		offset += n
		g.Go(func() error {
			return u.uploadChunk(gctx, chunkIndex, chunks, chunkStart, buf)
		})
	}

	if err := g.Wait(); err != nil {
		return domain.Video{}, fmt.Errorf("upload %s: %w", u.file.Name, err)
	}
	if readErr != nil {
		return domain.Video{}, fmt.Errorf("upload %s: %w", u.file.Name, readErr)
	}

	if err := u.finish(ctx, chunks); err != nil {
		return domain.Video{}, fmt.Errorf("finish upload %s: %w", u.file.Name, err)
	}

	elapsed := time.Since(start)
	u.logger.Info("upload completed",
		"file", u.file.Name,
		"bytes", u.file.Size,
		"elapsed", elapsed.Round(10*time.Millisecond),
		"rate_mbps", float64(u.file.Size)/1e6/elapsed.Seconds(),
	)

	return domain.Video{
		Title:    stem(u.file.Name),
		Filename: stem(path.Base(uposPath(u.pre.UposURI))),
	}, nil
}

func (u *UploadSession) uploadChunk(ctx context.Context, index, total int, start int64, buf []byte) error {
	query := url.Values{
		"partNumber": {strconv.Itoa(index + 1)},
		"uploadId":   {u.uploadID},
		"chunk":      {strconv.Itoa(index)},
		"chunks":     {strconv.Itoa(total)},
		"size":       {strconv.Itoa(len(buf))},
		"start":      {strconv.FormatInt(start, 10)},
		"end":        {strconv.FormatInt(start+int64(len(buf)), 10)},
		"total":      {strconv.FormatInt(u.file.Size, 10)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.base+"?"+query.Encode(), bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("create chunk request: %w", err)
	}
	req.Header.Set("X-Upos-Auth", u.pre.Auth)
	req.ContentLength = int64(len(buf))

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("put chunk %d: %w", index, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chunk %d status %d", index, resp.StatusCode)
	}
	return nil
}

// finish completes the multipart upload with the ordered part list.
func (u *UploadSession) finish(ctx context.Context, chunks int) error {
	parts := make([]finishPart, chunks)
	for i := range parts {
		parts[i] = finishPart{PartNumber: i + 1, ETag: "etag"}
	}

	body, err := json.Marshal(map[string][]finishPart{"parts": parts})
	if err != nil {
		return fmt.Errorf("marshal parts: %w", err)
	}

	query := url.Values{
		"output":   {"json"},
		"name":     {u.file.Name},
		"profile":  {"ugcfx/bup"},
		"uploadId": {u.uploadID},
		"biz_id":   {strconv.FormatInt(u.pre.BizID, 10)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.base+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Upos-Auth", u.pre.Auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// endpointURL normalizes the protocol-relative endpoint the preupload
// response carries.
func endpointURL(endpoint string) string {
	if strings.HasPrefix(endpoint, "//") {
		return "https:" + endpoint
	}
	return endpoint
}

// uposPath maps "upos://bucket/object" to "/bucket/object".
func uposPath(uri string) string {
	return "/" + strings.TrimPrefix(uri, "upos://")
}
