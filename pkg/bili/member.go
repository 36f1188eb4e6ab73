package bili

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bilistream/bilistream/internal/domain"
)

// Preupload is the negotiated upload transport for one file: the CDN
// endpoint, the remote object path and the per-chunk protocol parameters.
type Preupload struct {
	Endpoint  string
	UposURI   string
	BizID     int64
	ChunkSize int64
	Auth      string
}

// Preupload negotiates an upload slot for a file on the given CDN line.
// upcdn is the line's query identifier (e.g. "bda2").
func (s *Session) Preupload(ctx context.Context, filename string, size int64, upcdn string) (*Preupload, error) {
	query := url.Values{
		"name":          {filename},
		"size":          {strconv.FormatInt(size, 10)},
		"r":             {"upos"},
		"profile":       {"ugcfx/bup"},
		"ssl":           {"0"},
		"version":       {"2.14.0"},
		"build":         {"2140000"},
		"upcdn":         {upcdn},
		"probe_version": {"20221109"},
	}

	req, err := s.newRequest(ctx, http.MethodGet, s.cfg.MemberBase+"/preupload?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send preupload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preupload status %d", resp.StatusCode)
	}

	// This endpoint answers flat, without the code/data envelope.
	var data preuploadData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode preupload: %w", err)
	}
	if data.OK != 1 {
		return nil, fmt.Errorf("preupload refused: OK=%d", data.OK)
	}

	return &Preupload{
		Endpoint:  data.Endpoint,
		UposURI:   data.UposURI,
		BizID:     data.BizID,
		ChunkSize: data.ChunkSize,
		Auth:      data.Auth,
	}, nil
}

// CoverUp uploads cover image bytes and returns the remote URL.
func (s *Session) CoverUp(ctx context.Context, image []byte) (string, error) {
	form := url.Values{
		"cover": {"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)},
		"csrf":  {s.csrf},
	}
	raw, err := s.postForm(ctx, s.cfg.MemberBase+"/x/vu/web/cover/up", form)
	if err != nil {
		return "", fmt.Errorf("upload cover: %w", err)
	}

	var data coverData
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decode cover response: %w", err)
	}
	return data.URL, nil
}

// SubmitResult identifies a published record.
type SubmitResult struct {
	Aid  int64
	Bvid string
}

// Submit publishes a record through the web endpoint.
// A success response without a bvid violates the platform contract and is
// reported as domain.ErrMissingField.
func (s *Session) Submit(ctx context.Context, studio *domain.Studio) (*SubmitResult, error) {
	if err := studio.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{
		"t":    {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		"csrf": {s.csrf},
	}
	raw, err := s.postJSON(ctx, s.cfg.MemberBase+"/x/vu/web/add/v3?"+query.Encode(), studio)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	return decodeSubmit(raw)
}

// SubmitByApp publishes a record through the signed app endpoint. Proxy and
// userAgent override the outbound transport when non-empty.
func (s *Session) SubmitByApp(ctx context.Context, studio *domain.Studio, proxy, userAgent string) (*SubmitResult, error) {
	if err := studio.Validate(); err != nil {
		return nil, err
	}

	client := s.client
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy %s: %w", proxy, err)
		}
		client = &http.Client{
			Timeout:   s.cfg.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}

	query := signForm(url.Values{
		"access_key": {s.accessToken},
		"ts":         {strconv.FormatInt(time.Now().Unix(), 10)},
	})

	body, err := json.Marshal(studio)
	if err != nil {
		return nil, fmt.Errorf("marshal studio: %w", err)
	}
	req, err := s.newRequest(ctx, http.MethodPost, s.cfg.MemberBase+"/x/vu/client/add?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	raw, err := doEnvelope(client, req)
	if err != nil {
		return nil, fmt.Errorf("submit by app: %w", err)
	}
	return decodeSubmit(raw)
}

func decodeSubmit(raw json.RawMessage) (*SubmitResult, error) {
	var data submitData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode submit response: %w", err)
	}
	if data.Bvid == "" {
		return nil, fmt.Errorf("%w: bvid", domain.ErrMissingField)
	}
	return &SubmitResult{Aid: data.Aid, Bvid: data.Bvid}, nil
}

// VideoData fetches the current server-side metadata of a published record.
func (s *Session) VideoData(ctx context.Context, bvid string) (json.RawMessage, error) {
	raw, err := s.getJSON(ctx, s.cfg.MemberBase+"/x/web/archive/view", url.Values{"bvid": {bvid}})
	if err != nil {
		return nil, fmt.Errorf("fetch archive %s: %w", bvid, err)
	}
	return raw, nil
}

// archiveView is the subset of the view payload the edit flow needs.
type archiveView struct {
	Archive struct {
		Aid       int64  `json:"aid"`
		Title     string `json:"title"`
		Tid       int    `json:"tid"`
		Tag       string `json:"tag"`
		Copyright int    `json:"copyright"`
		Source    string `json:"source"`
		Desc      string `json:"desc"`
		Dynamic   string `json:"dynamic"`
		Cover     string `json:"cover"`
		DTime     int64  `json:"dtime"`
	} `json:"archive"`
	Videos []struct {
		Title    string `json:"title"`
		Filename string `json:"filename"`
		Desc     string `json:"desc"`
	} `json:"videos"`
}

// StudioData rebuilds an editable Studio from the record's current state.
func (s *Session) StudioData(ctx context.Context, bvid string) (*domain.Studio, error) {
	raw, err := s.VideoData(ctx, bvid)
	if err != nil {
		return nil, err
	}

	var view archiveView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode archive view: %w", err)
	}

	studio := domain.Studio{
		Aid:       view.Archive.Aid,
		Title:     view.Archive.Title,
		Tid:       view.Archive.Tid,
		Tag:       view.Archive.Tag,
		Copyright: view.Archive.Copyright,
		Source:    view.Archive.Source,
		Desc:      view.Archive.Desc,
		Dynamic:   view.Archive.Dynamic,
		Cover:     view.Archive.Cover,
		DTime:     view.Archive.DTime,
	}
	for _, v := range view.Videos {
		studio.Videos = append(studio.Videos, domain.Video{
			Title:    v.Title,
			Filename: v.Filename,
			Desc:     v.Desc,
		})
	}
	return &studio, nil
}

// Edit resubmits a modified record. The platform reports semantic failures
// through a non-zero envelope code even on HTTP 200; that surfaces here as
// an *APIError.
func (s *Session) Edit(ctx context.Context, studio *domain.Studio) (json.RawMessage, error) {
	raw, err := s.postJSON(ctx, s.cfg.MemberBase+"/x/vu/web/edit?csrf="+url.QueryEscape(s.csrf), studio)
	if err != nil {
		return nil, fmt.Errorf("edit archive: %w", err)
	}
	return raw, nil
}

// Archives lists published records filtered by status, one page at a time.
func (s *Session) Archives(ctx context.Context, status string, page int) (json.RawMessage, error) {
	query := url.Values{
		"status": {status},
		"pn":     {strconv.Itoa(page)},
		"ps":     {"10"},
	}
	raw, err := s.getJSON(ctx, s.cfg.MemberBase+"/x/web/archives", query)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	return raw, nil
}

// Delete removes a published record through the signed app endpoint.
func (s *Session) Delete(ctx context.Context, bvid string) error {
	form := signForm(url.Values{
		"access_key": {s.accessToken},
		"bvid":       {bvid},
		"ts":         {strconv.FormatInt(time.Now().Unix(), 10)},
	})
	if _, err := s.postForm(ctx, s.cfg.MemberBase+"/x/vu/client/archive/delete", form); err != nil {
		return fmt.Errorf("delete archive %s: %w", bvid, err)
	}
	return nil
}
