package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilistream/bilistream/internal/domain"
	"github.com/bilistream/bilistream/pkg/bili"
)

const archiveViewJSON = `{"code":0,"message":"","data":{
	"archive":{"aid":111,"title":"old title","tid":171,"tag":"game,live","copyright":2,
		"desc":"original desc","cover":"https://i0.hdslb.com/old.jpg"},
	"videos":[{"title":"p1","filename":"n123","desc":""}]}}`

// archiveServer serves nav, view and edit; the edit body is captured for
// overlay assertions.
func archiveServer(t *testing.T, editResponse string) (*httptest.Server, *domain.Studio) {
	t.Helper()
	edited := &domain.Studio{}

	mux := http.NewServeMux()
	mux.HandleFunc("/x/web-interface/nav", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"message":"","data":{"isLogin":true,"mid":12345}}`))
	})
	mux.HandleFunc("/x/web/archive/view", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(archiveViewJSON))
	})
	mux.HandleFunc("/x/vu/web/edit", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(edited))
		w.Write([]byte(editResponse))
	})
	mux.HandleFunc("/x/web/archives", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"message":"","data":{"arc_audits":[{"Archive":{"bvid":"BV1xx411c7mD"}}]}}`))
	})
	mux.HandleFunc("/x/vu/client/archive/delete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("sign"))
		w.Write([]byte(`{"code":0,"message":"","data":null}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, edited
}

func TestEditOverlaysOnlyGivenFields(t *testing.T) {
	srv, edited := archiveServer(t, `{"code":0,"message":"","data":{"aid":111,"bvid":"BV1xx411c7mD"}}`)

	svc := NewArchiveService(testConfig(), clientConfigFor(srv), testLogger())

	_, err := svc.Edit(context.Background(), writeCredentialFile(t), "BV1xx411c7mD",
		EditRequest{Title: "new title"})
	require.NoError(t, err)

	assert.Equal(t, "new title", edited.Title)
	// Everything else carries over from the fetched state.
	assert.Equal(t, "game,live", edited.Tag)
	assert.Equal(t, "original desc", edited.Desc)
	assert.Equal(t, "https://i0.hdslb.com/old.jpg", edited.Cover)
	assert.EqualValues(t, 111, edited.Aid)
	require.Len(t, edited.Videos, 1)
	assert.Equal(t, "n123", edited.Videos[0].Filename)
}

func TestEditSemanticFailure(t *testing.T) {
	srv, _ := archiveServer(t, `{"code":21012,"message":"archive is locked","data":null}`)

	svc := NewArchiveService(testConfig(), clientConfigFor(srv), testLogger())

	_, err := svc.Edit(context.Background(), writeCredentialFile(t), "BV1xx411c7mD",
		EditRequest{Title: "new title"})
	require.Error(t, err)

	var apiErr *bili.APIError
	require.True(t, errors.As(err, &apiErr), "semantic failures surface the platform code")
	assert.Equal(t, 21012, apiErr.Code)
}

func TestFetch(t *testing.T) {
	srv, _ := archiveServer(t, "")

	svc := NewArchiveService(testConfig(), clientConfigFor(srv), testLogger())

	raw, err := svc.Fetch(context.Background(), writeCredentialFile(t), "BV1xx411c7mD")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "old title")
}

func TestList(t *testing.T) {
	srv, _ := archiveServer(t, "")

	svc := NewArchiveService(testConfig(), clientConfigFor(srv), testLogger())

	raw, err := svc.List(context.Background(), writeCredentialFile(t), "pubed", 1)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "BV1xx411c7mD")
}

func TestDeleteArchive(t *testing.T) {
	srv, _ := archiveServer(t, "")

	svc := NewArchiveService(testConfig(), clientConfigFor(srv), testLogger())

	require.NoError(t, svc.Delete(context.Background(), writeCredentialFile(t), "BV1xx411c7mD"))
}
