package uploader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bilistream/bilistream/internal/domain"
)

// VideoFile is a read-only local source for one upload. It is owned by the
// upload session while streaming and closed once all chunks are sent.
type VideoFile struct {
	file *os.File
	Path string
	Name string // display name, base of the path
	Size int64
}

// NewVideoFile opens a local file for upload. A zero-byte file is rejected
// with domain.ErrEmptyFile before any network call.
func NewVideoFile(path string) (*VideoFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat video file: %w", err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, domain.ErrEmptyFile)
	}

	return &VideoFile{
		file: f,
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
	}, nil
}

// Read implements io.Reader over the file contents.
func (v *VideoFile) Read(p []byte) (int, error) {
	return v.file.Read(p)
}

// Close releases the underlying file handle.
func (v *VideoFile) Close() error {
	return v.file.Close()
}

// stem strips the extension from a file name.
func stem(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
