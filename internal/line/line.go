// Package line enumerates the named CDN upload endpoints and picks one,
// either from an explicit caller choice or by latency probing.
package line

import "fmt"

// Line identifies a named CDN upload endpoint. The zero value (Bda2) is the
// deterministic default; enum order breaks latency ties.
type Line int

const (
	Bda2 Line = iota
	Ws
	Qn
	Bldsa
	Tx
	Txa
	Bda
)

// All lists every probe candidate in tie-break order.
var All = []Line{Bda2, Ws, Qn, Bldsa, Tx, Txa, Bda}

var names = map[Line]string{
	Bda2:  "bda2",
	Ws:    "ws",
	Qn:    "qn",
	Bldsa: "bldsa",
	Tx:    "tx",
	Txa:   "txa",
	Bda:   "bda",
}

func (l Line) String() string {
	if n, ok := names[l]; ok {
		return n
	}
	return fmt.Sprintf("line(%d)", int(l))
}

// Upcdn is the query identifier sent with the preupload negotiation.
func (l Line) Upcdn() string { return l.String() }

// ProbeURL is the latency check target for this line.
func (l Line) ProbeURL() string {
	return fmt.Sprintf("https://upos-cs-upcdn%s.bilivideo.com/OK", l.String())
}

// Parse maps a line name to its Line value.
func Parse(s string) (Line, error) {
	for l, n := range names {
		if n == s {
			return l, nil
		}
	}
	return Bda2, fmt.Errorf("unknown upload line: %q", s)
}
