// Package forge is the PR-status backend registry used by the
// lifecycle engine's complete() operation (spec.md §4.7): a capability
// value set keyed by forge name, mirroring internal/agents' static
// registry pattern, grounded on original_source's kild-core/src/forge
// module (ForgeBackend trait + registry). Per spec.md's Non-goals this
// stops at PR status + branch deletion; issue tracking, review
// comments, and merge automation are out of scope.
package forge

import "context"

// Outcome is the result of querying a PR's status, matching the
// taxonomy in spec.md §4.7 step 1.
type Outcome string

const (
	OutcomeRemoteDeleted      Outcome = "RemoteDeleted"
	OutcomeRemoteDeleteFailed Outcome = "RemoteDeleteFailed"
	OutcomePrNotMerged        Outcome = "PrNotMerged"
	OutcomePrCheckUnavailable Outcome = "PrCheckUnavailable"
)

// PRStatus is what a Backend reports for one branch's associated PR.
type PRStatus struct {
	Outcome  Outcome
	Number   int
	URL      string
	HeadSHA  string
	MergedAt string // RFC3339, empty if not merged
}

// Backend queries and mutates PR/branch state on one forge (GitHub,
// GitLab, ...). Each backend is an independent value, not a subtype of
// some shared base (spec.md §9 "Dynamic backend dispatch").
type Backend interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	// QueryPR resolves the PR associated with branch in owner/repo, and
	// whether its remote ref has already been deleted.
	QueryPR(ctx context.Context, owner, repo, branch string) (PRStatus, error)
	// DeleteRemoteBranch removes the remote tracking branch after a PR merges.
	DeleteRemoteBranch(ctx context.Context, owner, repo, branch string) error
}

var registry = map[string]Backend{}

// Register adds a backend to the process-wide registry. Called from
// each backend's package init (see backend_github.go).
func Register(b Backend) {
	registry[b.Name()] = b
}

// Get looks up a backend by name.
func Get(name string) (Backend, bool) {
	b, ok := registry[name]
	return b, ok
}

// Detect returns the first available backend, preferring github.
func Detect(ctx context.Context) (Backend, bool) {
	if b, ok := registry["github"]; ok && b.IsAvailable(ctx) {
		return b, true
	}
	for _, b := range registry {
		if b.IsAvailable(ctx) {
			return b, true
		}
	}
	return nil, false
}
