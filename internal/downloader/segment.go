package downloader

import "time"

// Segment decides download segment boundaries. Exactly one threshold is set
// per configuration: ByTime or BySize, never both.
type Segment struct {
	maxDuration time.Duration // 0 = unbounded
	maxSize     int64         // 0 = unbounded

	startedAt time.Time
	written   int64

	now func() time.Time
}

// ByTime closes a segment once the configured duration has elapsed since
// the last boundary.
func ByTime(d time.Duration) *Segment {
	s := &Segment{maxDuration: d, now: time.Now}
	s.Reset()
	return s
}

// BySize closes a segment once the accumulated byte count since the last
// boundary reaches the threshold.
func BySize(n int64) *Segment {
	s := &Segment{maxSize: n, now: time.Now}
	s.Reset()
	return s
}

// Record accounts for n received bytes and reports whether a new segment
// must begin. The boundary fires exactly when a threshold is reached or
// exceeded, never before.
func (s *Segment) Record(n int) bool {
	s.written += int64(n)
	if s.maxSize > 0 && s.written >= s.maxSize {
		return true
	}
	if s.maxDuration > 0 && s.now().Sub(s.startedAt) >= s.maxDuration {
		return true
	}
	return false
}

// Written returns the bytes accumulated since the last boundary.
func (s *Segment) Written() int64 { return s.written }

// Reset starts the next segment.
func (s *Segment) Reset() {
	s.startedAt = s.now()
	s.written = 0
}
