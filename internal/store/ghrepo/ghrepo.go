// Package ghrepo bootstraps the GitHub repository a world's content is
// published to: it exists only to make sure the remote named in
// remote_repo.remote_repository_url is present before the first publish.
package ghrepo

import (
	"context"
	"fmt"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"
)

// Bootstrapper creates or verifies the existence of a GitHub repository.
type Bootstrapper struct {
	client *github.Client
	ctx    context.Context
}

// New builds a Bootstrapper authenticated with a personal access token.
func New(ctx context.Context, token string) *Bootstrapper {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Bootstrapper{client: github.NewClient(tc), ctx: ctx}
}

// Exists reports whether owner/repo already exists.
func (b *Bootstrapper) Exists(owner, repo string) (bool, error) {
	_, resp, err := b.client.Repositories.Get(b.ctx, owner, repo)
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("checking repository existence: %w", err)
	}
	return true, nil
}

// EnsureCreated creates owner/repo if it does not already exist, leaving an
// empty repository (no auto-init) for the daemon's own first commit to seed.
func (b *Bootstrapper) EnsureCreated(owner, repo, description string, private bool) error {
	exists, err := b.Exists(owner, repo)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	create := &github.Repository{
		Name:        github.String(repo),
		Description: github.String(description),
		Private:     github.Bool(private),
		AutoInit:    github.Bool(false),
	}
	// If owner is the authenticated user, the Repositories.Create org
	// argument must be empty.
	org := owner
	if authUser, _, err := b.client.Users.Get(b.ctx, ""); err == nil && authUser.GetLogin() == owner {
		org = ""
	}

	if _, _, err := b.client.Repositories.Create(b.ctx, org, create); err != nil {
		return fmt.Errorf("creating repository %s/%s: %w", owner, repo, err)
	}
	return nil
}

// TestConnection verifies the token authenticates successfully.
func (b *Bootstrapper) TestConnection() error {
	if _, _, err := b.client.Users.Get(b.ctx, ""); err != nil {
		return fmt.Errorf("GitHub API connection test failed: %w", err)
	}
	return nil
}
