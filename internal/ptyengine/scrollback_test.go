package ptyengine

import "testing"

func TestScrollbackWriteWithinLimit(t *testing.T) {
	sb := NewScrollback(100)
	sb.Write([]byte("hello"))
	sb.Write([]byte(" world"))
	if got := string(sb.Snapshot()); got != "hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestScrollbackDropsOldestWhenOverLimit(t *testing.T) {
	sb := NewScrollback(5)
	sb.Write([]byte("abcde"))
	sb.Write([]byte("fg"))
	if got := string(sb.Snapshot()); got != "cdefg" {
		t.Fatalf("got %q, want cdefg", got)
	}
}

func TestScrollbackSnapshotIsACopy(t *testing.T) {
	sb := NewScrollback(100)
	sb.Write([]byte("abc"))
	snap := sb.Snapshot()
	snap[0] = 'X'
	if got := string(sb.Snapshot()); got != "abc" {
		t.Fatalf("mutation of snapshot leaked into buffer: %q", got)
	}
}

// TestScrollbackWriteAndNotifyExcludesSnapshotAndAttach asserts the
// prefix invariant the daemon's attach path relies on: a chunk written
// via WriteAndNotify concurrently with SnapshotAndAttach either lands in
// the snapshot, or is notified after that call's fn (standing in for a
// fresh live subscription) has run, never both and never neither.
func TestScrollbackWriteAndNotifyExcludesSnapshotAndAttach(t *testing.T) {
	sb := NewScrollback(100)
	sb.Write([]byte("before"))

	var attached, delivered bool
	done := make(chan struct{})
	go func() {
		sb.WriteAndNotify([]byte("chunk"), func() {
			delivered = attached
		})
		close(done)
	}()
	snap := sb.SnapshotAndAttach(func() {
		attached = true
	})
	<-done

	inSnapshot := string(snap) == "beforechunk"
	if inSnapshot == delivered {
		t.Fatalf("chunk must land in exactly one of snapshot or live delivery, got in_snapshot=%v delivered=%v", inSnapshot, delivered)
	}
}
