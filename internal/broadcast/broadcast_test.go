package broadcast

import (
	"testing"
	"time"
)

func TestAttachAndPublishDelivers(t *testing.T) {
	f := NewFanout(nil)
	sub := f.Attach("c1")

	f.Publish([]byte("hello"))

	select {
	case msg := <-sub.C():
		if string(msg.Output) != "hello" {
			t.Fatalf("got %q", msg.Output)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
}

func TestPublishExitClosesChannelAfterFinalMessage(t *testing.T) {
	f := NewFanout(nil)
	sub := f.Attach("c1")

	f.PublishExit(ExitInfo{ExitCode: 0})

	msg, ok := <-sub.C()
	if !ok {
		t.Fatalf("expected exit message before close")
	}
	if msg.Exit == nil {
		t.Fatalf("expected exit message, got %+v", msg)
	}

	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected channel closed after exit")
	}
}

func TestDetachDoesNotTriggerEvictCallback(t *testing.T) {
	evicted := false
	f := NewFanout(func(string) { evicted = true })
	f.Attach("c1")
	f.Detach("c1")

	if evicted {
		t.Fatalf("Detach must not invoke the eviction callback")
	}
}

func TestSlowClientEvictedAfterSustainedBackpressure(t *testing.T) {
	origGrace := BackpressureGrace
	t.Cleanup(func() { BackpressureGrace = origGrace })
	BackpressureGrace = 10 * time.Millisecond

	var evictedID string
	done := make(chan struct{})
	f := NewFanout(func(id string) { evictedID = id; close(done) })

	sub := f.Attach("slow")
	for i := 0; i < QueueSize; i++ {
		f.Publish([]byte("x"))
	}
	// Queue is now full; keep publishing past the grace period without
	// draining sub's channel.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		f.Publish([]byte("y"))
		select {
		case <-done:
			goto evicted
		default:
		}
		time.Sleep(2 * time.Millisecond)
	}

evicted:
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected slow client to be evicted")
	}
	if evictedID != "slow" {
		t.Fatalf("got evicted id %q", evictedID)
	}
	_ = sub
}
