package content

import (
	"io"
	"sync"
)

// ProgressReader wraps a reader and reports the percentage of bytes consumed.
//
// Reported values are monotonically non-decreasing and capped below 100
// until Done is called, so that 100 is only ever observed once the store has
// durably accepted the bytes.
type ProgressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ProgressFunc

	mu   sync.Mutex
	last float64
}

// NewProgressReader wraps r. total <= 0 disables intermediate reports.
func NewProgressReader(r io.Reader, total int64, progress ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, progress: progress, last: -1}
}

func (p *ProgressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.total > 0 {
			pct := float64(p.read) / float64(p.total) * 100
			if pct > 99 {
				pct = 99
			}
			p.report(pct)
		}
	}
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (p *ProgressReader) BytesRead() int64 {
	return p.read
}

// Start reports 0%.
func (p *ProgressReader) Start() {
	p.report(0)
}

// Done reports 100%.
func (p *ProgressReader) Done() {
	p.report(100)
}

func (p *ProgressReader) report(pct float64) {
	if p.progress == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pct <= p.last {
		return
	}
	p.last = pct
	p.progress(pct)
}
