package executor

import "sync"

// TailBuffer retains the most recent maxBytes of a stream while counting
// everything that ever passed through. A runaway child cannot OOM the
// server; old bytes are discarded in favor of recent ones.
type TailBuffer struct {
	mu    sync.Mutex
	max   int64
	buf   []byte
	total int64
	lfs   int64
	last  byte
}

// NewTailBuffer creates a buffer retaining at most maxBytes.
func NewTailBuffer(maxBytes int64) *TailBuffer {
	if maxBytes < 1 {
		maxBytes = 1
	}
	return &TailBuffer{max: maxBytes}
}

// Push appends stream bytes, evicting from the front once the window is full.
func (b *TailBuffer) Push(p []byte) {
	if len(p) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total += int64(len(p))
	for _, c := range p {
		if c == '\n' {
			b.lfs++
		}
	}
	b.last = p[len(p)-1]

	b.buf = append(b.buf, p...)
	if int64(len(b.buf)) > b.max {
		excess := int64(len(b.buf)) - b.max
		b.buf = append(b.buf[:0], b.buf[excess:]...)
	}
}

// TotalWritten returns the total bytes pushed since creation.
func (b *TailBuffer) TotalWritten() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total
}

// TotalLines returns the number of LF-delimited segments observed, counting
// a trailing unterminated segment.
func (b *TailBuffer) TotalLines() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.total == 0 {
		return 0
	}
	if b.last == '\n' {
		return b.lfs
	}
	return b.lfs + 1
}

// WindowStart returns the stream offset of the first retained byte.
func (b *TailBuffer) WindowStart() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total - int64(len(b.buf))
}

// Range returns stream bytes [start, end) if they are still retained. The
// second return is false when start precedes the retained window; end is
// clamped to the stream total.
func (b *TailBuffer) Range(start, end int64) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	windowStart := b.total - int64(len(b.buf))
	if start < windowStart {
		return nil, false
	}
	if end > b.total {
		end = b.total
	}
	if start >= end {
		return []byte{}, true
	}
	out := make([]byte, end-start)
	copy(out, b.buf[start-windowStart:end-windowStart])
	return out, true
}
