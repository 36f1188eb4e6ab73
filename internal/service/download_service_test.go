package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilistream/bilistream/internal/config"
	"github.com/bilistream/bilistream/internal/downloader"
	"github.com/bilistream/bilistream/internal/repository"
)

func TestDownloadRecordsHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stream payload"))
	}))
	defer srv.Close()

	store, err := repository.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := NewDownloadService(config.DownloadConfig{ReadTimeout: 5 * time.Second}, store, testLogger())

	stats, err := svc.Download(context.Background(), DownloadRequest{
		URL:     srv.URL,
		Output:  filepath.Join(t.TempDir(), "live.flv"),
		Segment: downloader.BySize(1 << 20),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 14, stats.Bytes)

	records, err := store.Recent(context.Background(), repository.KindDownload, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, srv.URL, records[0].Identifier)
	assert.EqualValues(t, 14, records[0].Bytes)
	assert.Equal(t, 1, records[0].Files)
}

func TestDownloadFailureSkipsHistory(t *testing.T) {
	store, err := repository.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := NewDownloadService(config.DownloadConfig{ReadTimeout: time.Second}, store, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Download(ctx, DownloadRequest{
		URL:     "http://127.0.0.1:1/unreachable",
		Output:  filepath.Join(t.TempDir(), "live.flv"),
		Segment: downloader.BySize(1 << 20),
	})
	require.Error(t, err)

	records, err := store.Recent(context.Background(), repository.KindDownload, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
