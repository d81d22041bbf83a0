package client

import "sync"

// outputCap is how much command output a session retains. Older bytes fall
// off the front once the buffer wraps.
const outputCap = 10 * 1024

// OutputBuffer is a fixed-size ring that keeps the newest bytes written to
// it. Sessions use one as the default sink for command output so callers
// can inspect what a failed command printed. Safe for concurrent use.
type OutputBuffer struct {
	mu    sync.Mutex
	buf   [outputCap]byte
	start int
	size  int
}

// Write implements io.Writer. It never fails; writes larger than the
// buffer keep only their tail.
func (b *OutputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= outputCap {
		copy(b.buf[:], p[n-outputCap:])
		b.start = 0
		b.size = outputCap
		return n, nil
	}

	pos := (b.start + b.size) % outputCap
	head := copy(b.buf[pos:], p)
	copy(b.buf[:], p[head:])

	b.size += n
	if b.size > outputCap {
		b.start = (b.start + b.size - outputCap) % outputCap
		b.size = outputCap
	}
	return n, nil
}

// String returns the retained bytes, oldest first.
func (b *OutputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.start+b.size <= outputCap {
		return string(b.buf[b.start : b.start+b.size])
	}
	out := make([]byte, 0, b.size)
	out = append(out, b.buf[b.start:]...)
	out = append(out, b.buf[:(b.start+b.size)%outputCap]...)
	return string(out)
}

// Len reports how many bytes the buffer currently retains.
func (b *OutputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Reset drops everything retained so far.
func (b *OutputBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start, b.size = 0, 0
}
