package downloader

// Namer is the per-segment naming capability. Propose receives the default
// file name for a new segment and may return an override; an empty return
// keeps the proposal. Errors are logged by the downloader and never abort
// the download.
type Namer interface {
	Propose(name string) (string, error)
}

// NamerFunc adapts a function to the Namer interface.
type NamerFunc func(name string) (string, error)

func (f NamerFunc) Propose(name string) (string, error) { return f(name) }
