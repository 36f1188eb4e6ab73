package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	err := Wrap("upload chunk", "part1.mp4", ErrEmptyFile)
	require.Error(t, err)
	assert.Equal(t, "upload chunk part1.mp4: empty video file", err.Error())
	assert.True(t, errors.Is(err, ErrEmptyFile))

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "upload chunk", opErr.Op)
	assert.Equal(t, "part1.mp4", opErr.Subject)
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap("op", "subject", nil))
}

func TestNewStudioDefaults(t *testing.T) {
	studio := NewStudio("my stream")
	assert.Equal(t, "my stream", studio.Title)
	assert.Equal(t, 171, studio.Tid)
	assert.Equal(t, 2, studio.Copyright)
}

func TestStudioValidate(t *testing.T) {
	studio := NewStudio("t")
	assert.True(t, errors.Is(studio.Validate(), ErrNoVideos))

	studio.Videos = []Video{{Filename: "n1"}}
	assert.NoError(t, studio.Validate())

	studio.Cover = "/tmp/cover.jpg"
	assert.True(t, errors.Is(studio.Validate(), ErrLocalCover))

	studio.Cover = "https://i0.hdslb.com/cover.jpg"
	assert.NoError(t, studio.Validate())
}
