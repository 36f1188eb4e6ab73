package uploader

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/pkg/bili"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTempFile(t *testing.T, size int) (string, []byte) {
	t.Helper()
	payload := make([]byte, size)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "live.mp4")
	require.NoError(t, os.WriteFile(path, payload, 0o644))
	return path, payload
}

// uposServer mimics the CDN side of a multipart upload: init, chunk PUTs and
// the completing POST. It tracks peak PUT concurrency.
type uposServer struct {
	mu       sync.Mutex
	chunks   map[int64][]byte // keyed by start offset
	parts    []int
	finished bool

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (s *uposServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.Method == http.MethodPost && q.Has("uploads"):
			json.NewEncoder(w).Encode(map[string]any{"OK": 1, "upload_id": "uid-1"})

		case r.Method == http.MethodPut:
			cur := s.inflight.Add(1)
			for {
				max := s.maxInflight.Load()
				if cur <= max || s.maxInflight.CompareAndSwap(max, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)

			body, _ := io.ReadAll(r.Body)
			start, _ := strconv.ParseInt(q.Get("start"), 10, 64)
			s.mu.Lock()
			s.chunks[start] = body
			s.mu.Unlock()

			s.inflight.Add(-1)

		case r.Method == http.MethodPost && q.Get("uploadId") != "":
			var req struct {
				Parts []struct {
					PartNumber int `json:"partNumber"`
				} `json:"parts"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			s.mu.Lock()
			for _, p := range req.Parts {
				s.parts = append(s.parts, p.PartNumber)
			}
			s.finished = true
			s.mu.Unlock()
			json.NewEncoder(w).Encode(map[string]any{"OK": 1})

		default:
			http.Error(w, "unexpected request", http.StatusBadRequest)
		}
	}
}

func newSession(t *testing.T, srv *httptest.Server, vf *VideoFile, chunkSize int64) *UploadSession {
	t.Helper()
	u := &UploadSession{
		client: srv.Client(),
		logger: testLogger(),
		file:   vf,
		pre: &bili.Preupload{
			Endpoint:  srv.URL,
			UposURI:   "upos://ugcfx/n123.mp4",
			BizID:     7,
			ChunkSize: chunkSize,
			Auth:      "auth-token",
		},
		base: srv.URL + "/ugcfx/n123.mp4",
	}
	require.NoError(t, u.initUpload(context.Background()))
	return u
}

func TestUploadBoundsConcurrencyAndReassembles(t *testing.T) {
	const chunkSize = 1024
	path, payload := writeTempFile(t, 10*chunkSize+123) // 11 chunks, ragged tail

	backend := &uposServer{chunks: map[int64][]byte{}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	vf, err := NewVideoFile(path)
	require.NoError(t, err)

	u := newSession(t, srv, vf, chunkSize)
	video, err := u.Upload(context.Background(), 3)
	require.NoError(t, err)

	assert.LessOrEqual(t, backend.maxInflight.Load(), int32(3),
		"in-flight chunk PUTs must never exceed the limit")
	assert.Greater(t, backend.maxInflight.Load(), int32(1),
		"chunks should actually overlap")

	// Reassembled chunks reproduce the file bytes exactly.
	got := make([]byte, 0, len(payload))
	for off := int64(0); off < int64(len(payload)); {
		chunk, ok := backend.chunks[off]
		require.True(t, ok, "missing chunk at offset %d", off)
		got = append(got, chunk...)
		off += int64(len(chunk))
	}
	assert.Equal(t, payload, got)

	require.True(t, backend.finished)
	require.Len(t, backend.parts, 11)
	for i, p := range backend.parts {
		assert.Equal(t, i+1, p, "finish parts must stay in order")
	}

	assert.Equal(t, "live", video.Title)
	assert.Equal(t, "n123", video.Filename)
}

func TestUploadSingleChunk(t *testing.T) {
	path, payload := writeTempFile(t, 100)

	backend := &uposServer{chunks: map[int64][]byte{}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	vf, err := NewVideoFile(path)
	require.NoError(t, err)

	u := newSession(t, srv, vf, 1<<20)
	_, err = u.Upload(context.Background(), 8)
	require.NoError(t, err)

	assert.Equal(t, payload, backend.chunks[0])
	assert.Equal(t, []int{1}, backend.parts)
}

func TestUploadChunkFailure(t *testing.T) {
	path, _ := writeTempFile(t, 4096)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"OK": 1, "upload_id": "uid-1"})
	}))
	defer srv.Close()

	vf, err := NewVideoFile(path)
	require.NoError(t, err)

	u := newSession(t, srv, vf, 1024)
	_, err = u.Upload(context.Background(), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNewVideoFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mp4")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewVideoFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmptyFile))
}

func TestNewVideoFileMissing(t *testing.T) {
	_, err := NewVideoFile(filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
