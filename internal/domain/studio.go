package domain

import "strings"

// Video is one uploaded part of a publish record: the remote file handle
// returned by the upload CDN plus the original display name. Part order
// matches the caller-supplied input order; the platform renders multi-part
// videos in this order.
type Video struct {
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Desc     string `json:"desc"`
}

// Credit is a structured attribution entry in a video description.
type Credit struct {
	TypeID  int    `json:"type_id"`
	RawText string `json:"raw_text"`
	BizID   string `json:"biz_id,omitempty"`
}

// Studio is the publish record submitted to create or update a video.
// Zero values are usable defaults except Title and Videos.
type Studio struct {
	// Aid is the numeric archive id; set only when editing.
	Aid int64 `json:"aid,omitempty"`
	// Title of the archive. Required.
	Title string `json:"title"`
	// Tid is the category id. Default 171 (single-player games).
	Tid int `json:"tid"`
	// Tag is a comma-separated tag string.
	Tag string `json:"tag"`
	// Copyright: 1 original, 2 repost. Default 2.
	Copyright int `json:"copyright"`
	// Source names the origin of a reposted video.
	Source string `json:"source"`
	// Desc is the plain description text.
	Desc string `json:"desc"`
	// DescV2 holds structured credits; order preserved.
	DescV2 []Credit `json:"desc_v2,omitempty"`
	// Dynamic is the status/dynamic text published alongside.
	Dynamic string `json:"dynamic"`
	// Cover is a local path before resolution, a remote url at submit time.
	Cover string `json:"cover"`
	// DTime schedules publication (unix seconds); 0 publishes immediately.
	DTime int64 `json:"dtime,omitempty"`
	// Feature flags, 0 or 1.
	Dolby         int `json:"dolby"`
	LosslessMusic int `json:"lossless_music"`
	NoReprint     int `json:"no_reprint"`
	OpenElec      int `json:"open_elec"`
	// Reply/danmu visibility flags.
	UpCloseReply     bool `json:"up_close_reply"`
	UpSelectionReply bool `json:"up_selection_reply"`
	UpCloseDanmu     bool `json:"up_close_danmu"`
	// Videos is the ordered part list. Required, non-empty at submit.
	Videos []Video `json:"videos"`
}

// NewStudio returns a Studio with documented defaults applied.
func NewStudio(title string) Studio {
	return Studio{
		Title:     title,
		Tid:       171,
		Copyright: 2,
	}
}

// Validate checks the submit-time invariants.
func (s *Studio) Validate() error {
	if len(s.Videos) == 0 {
		return ErrNoVideos
	}
	if s.Cover != "" && !isRemoteURL(s.Cover) {
		return ErrLocalCover
	}
	return nil
}

func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Submission selects how a publish record is submitted.
type Submission interface {
	isSubmission()
}

// SubmitWeb submits through the web endpoint with the session csrf token.
type SubmitWeb struct{}

// SubmitApp submits through the signed app endpoint. Proxy and UserAgent
// override the outbound transport when non-empty.
type SubmitApp struct {
	Proxy     string
	UserAgent string
}

func (SubmitWeb) isSubmission() {}
func (SubmitApp) isSubmission() {}
