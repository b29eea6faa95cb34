package ptyengine

import "sync"

// DefaultScrollbackBytes bounds the ring buffer size. Raw bytes, not
// decoded lines — spec.md §4.3 calls out the buffer as a bounded ring of
// raw bytes, replayed whole to a newly attached client.
const DefaultScrollbackBytes = 10_000 * 80 // ~10,000 80-column lines worth

// Scrollback is a bounded ring buffer of raw PTY output bytes.
type Scrollback struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

// NewScrollback creates a ring buffer capped at limit bytes.
func NewScrollback(limit int) *Scrollback {
	if limit <= 0 {
		limit = DefaultScrollbackBytes
	}
	return &Scrollback{limit: limit}
}

// Write appends p, dropping the oldest bytes if the buffer would exceed
// its limit.
func (s *Scrollback) Write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(p)
}

func (s *Scrollback) writeLocked(p []byte) {
	s.buf = append(s.buf, p...)
	if over := len(s.buf) - s.limit; over > 0 {
		s.buf = s.buf[over:]
	}
}

// Snapshot returns a copy of the current buffer contents, safe to hand
// to a new attacher without holding the lock during replay.
func (s *Scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Scrollback) snapshotLocked() []byte {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// WriteAndNotify appends p and then invokes fn, both while holding the
// buffer lock. Pair with SnapshotAndAttach to make "append chunk, notify
// live subscribers" and "snapshot buffer, add subscriber" mutually
// exclusive: whichever runs first fully determines whether a byte goes
// out via replay or via the live stream, never both and never neither.
func (s *Scrollback) WriteAndNotify(p []byte, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeLocked(p)
	if fn != nil {
		fn()
	}
}

// SnapshotAndAttach returns a copy of the buffer and invokes fn, both
// while holding the buffer lock. See WriteAndNotify.
func (s *Scrollback) SnapshotAndAttach(fn func()) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.snapshotLocked()
	if fn != nil {
		fn()
	}
	return out
}
