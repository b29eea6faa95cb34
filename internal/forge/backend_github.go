package forge

import (
	"context"
	"errors"
	"os"

	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// GithubBackend implements Backend against the GitHub REST API via
// google/go-github, authenticated with a personal access token from
// GITHUB_TOKEN (grounded on the oauth2.StaticTokenSource pattern used
// throughout the example pack's GitHub integrations).
type GithubBackend struct {
	client *github.Client
}

func init() {
	Register(NewGithubBackend())
}

// NewGithubBackend builds a client; QueryPR/DeleteRemoteBranch return
// PrCheckUnavailable-flavored errors if no token is configured, rather
// than failing at construction time.
func NewGithubBackend() *GithubBackend {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return &GithubBackend{client: github.NewClient(nil)}
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), ts)
	return &GithubBackend{client: github.NewClient(httpClient)}
}

func (g *GithubBackend) Name() string { return "github" }

func (g *GithubBackend) IsAvailable(ctx context.Context) bool {
	return os.Getenv("GITHUB_TOKEN") != ""
}

// QueryPR finds the open-or-merged PR for branch via the GitHub "list
// pulls by head" filter and reports its merge/deletion state.
func (g *GithubBackend) QueryPR(ctx context.Context, owner, repo, branch string) (PRStatus, error) {
	if !g.IsAvailable(ctx) {
		return PRStatus{Outcome: OutcomePrCheckUnavailable}, nil
	}

	opts := &github.PullRequestListOptions{
		Head:  owner + ":" + branch,
		State: "all",
		ListOptions: github.ListOptions{PerPage: 1},
	}
	prs, _, err := g.client.PullRequests.List(ctx, owner, repo, opts)
	if err != nil {
		return PRStatus{Outcome: OutcomePrCheckUnavailable}, err
	}
	if len(prs) == 0 {
		return PRStatus{Outcome: OutcomePrNotMerged}, nil
	}

	pr := prs[0]
	status := PRStatus{
		Number:  pr.GetNumber(),
		URL:     pr.GetHTMLURL(),
		HeadSHA: pr.GetHead().GetSHA(),
	}
	if !pr.GetMerged() {
		status.Outcome = OutcomePrNotMerged
		return status, nil
	}
	status.MergedAt = pr.GetMergedAt().Format(mergedAtLayout)

	_, _, err = g.client.Repositories.GetBranch(ctx, owner, repo, branch, 0)
	if err != nil {
		status.Outcome = OutcomeRemoteDeleted // branch gone is the success path here
		return status, nil
	}
	status.Outcome = OutcomePrNotMerged // PR merged but branch still present upstream
	return status, nil
}

func (g *GithubBackend) DeleteRemoteBranch(ctx context.Context, owner, repo, branch string) error {
	if !g.IsAvailable(ctx) {
		return errors.New("github backend unavailable: GITHUB_TOKEN not set")
	}
	_, err := g.client.Git.DeleteRef(ctx, owner, repo, "refs/heads/"+branch)
	return err
}

const mergedAtLayout = "2006-01-02T15:04:05Z07:00"
