package forge

import (
	"context"
	"testing"
)

type fakeBackend struct {
	name      string
	available bool
}

func (f *fakeBackend) Name() string                    { return f.name }
func (f *fakeBackend) IsAvailable(context.Context) bool { return f.available }
func (f *fakeBackend) QueryPR(context.Context, string, string, string) (PRStatus, error) {
	return PRStatus{Outcome: OutcomePrNotMerged}, nil
}
func (f *fakeBackend) DeleteRemoteBranch(context.Context, string, string, string) error { return nil }

func TestRegisterAndGet(t *testing.T) {
	Register(&fakeBackend{name: "fake", available: true})
	b, ok := Get("fake")
	if !ok || b.Name() != "fake" {
		t.Fatalf("got %+v, %v", b, ok)
	}
}

func TestDetectSkipsUnavailableBackends(t *testing.T) {
	Register(&fakeBackend{name: "fake-unavailable", available: false})
	b, ok := Detect(context.Background())
	if ok && b.Name() == "fake-unavailable" {
		t.Fatalf("expected Detect to skip an unavailable backend")
	}
}
