package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/lcgerke/wasync/internal/constants"
	syncerr "github.com/lcgerke/wasync/internal/errors"
	"github.com/lcgerke/wasync/internal/git"
	"github.com/lcgerke/wasync/internal/store/ghrepo"
)

// GitStore is the default VersionedStore: a single local working tree
// pushed to one remote (the remote_repo.remote_repository_url named in
// configuration).
type GitStore struct {
	dir        string
	remoteURL  string
	remoteName string
	branch     string
	identity   struct{ name, email string }
	sshKeyPEM  string
	client     *git.Client
	bootstrap  *ghrepo.Bootstrapper
}

// Option configures a GitStore at construction.
type Option func(*GitStore)

// WithIdentity sets the commit author identity used for every commit.
func WithIdentity(name, email string) Option {
	return func(s *GitStore) { s.identity.name, s.identity.email = name, email }
}

// WithBranch overrides the default "main" publish branch.
func WithBranch(branch string) Option {
	return func(s *GitStore) { s.branch = branch }
}

// WithSSHKey configures the repository-local SSH command Checkout sets up,
// so Publish can push over SSH using the daemon's deploy key instead of
// whatever default identity the host's git is configured with.
func WithSSHKey(privateKeyPEM string) Option {
	return func(s *GitStore) { s.sshKeyPEM = privateKeyPEM }
}

// WithGitHubBootstrap makes Publish verify (and create, if absent) the
// GitHub repository named in remoteURL before the first push, using token
// to authenticate against the GitHub API.
func WithGitHubBootstrap(ctx context.Context, token string) Option {
	return func(s *GitStore) { s.bootstrap = ghrepo.New(ctx, token) }
}

var githubSSHRemotePattern = regexp.MustCompile(`^git@github\.com:([A-Za-z0-9]{1,15})/([A-Za-z0-9-]{1,35})\.git$`)

// NewGitStore builds a GitStore rooted at dir, publishing to remoteURL.
func NewGitStore(dir, remoteURL string, opts ...Option) *GitStore {
	s := &GitStore{
		dir:        dir,
		remoteURL:  remoteURL,
		remoteName: constants.DefaultCoreRemote,
		branch:     constants.DefaultBranch,
		client:     git.NewClient(dir),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.identity.name == "" {
		s.identity.name, s.identity.email = "wasync", "wasync@localhost"
	}
	return s
}

func (s *GitStore) WorkDir() string { return s.dir }

// Checkout ensures the working tree exists, is a git repository, has the
// configured remote, and has the configured commit identity set.
func (s *GitStore) Checkout(ctx context.Context) error {
	if exists, _ := s.client.LocalExists(); !exists {
		if err := os.MkdirAll(filepath.Dir(s.dir), 0755); err != nil {
			return syncerr.Wrap(syncerr.KindIOError, "creating working tree parent directory", err)
		}
		// Prefer resuming the published history; a clone failure (remote
		// missing or still empty) falls back to a fresh local repository.
		if err := git.Clone(ctx, s.remoteURL, s.dir); err != nil {
			if err := os.MkdirAll(s.dir, 0755); err != nil {
				return syncerr.Wrap(syncerr.KindIOError, "creating working tree directory", err)
			}
			if err := s.client.Init(false); err != nil {
				return syncerr.Wrap(syncerr.KindIOError, "initializing working tree", err)
			}
		}
	}

	if err := s.client.SetIdentity(s.identity.name, s.identity.email); err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "configuring commit identity", err)
	}

	if err := s.client.EnsureBranch(s.branch); err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "switching to publish branch", err)
	}

	if s.sshKeyPEM != "" {
		keyPath := filepath.Join(s.dir, ".git", "wasync_deploy_key")
		if err := os.WriteFile(keyPath, []byte(s.sshKeyPEM), 0600); err != nil {
			return syncerr.Wrap(syncerr.KindIOError, "writing deploy key to disk", err)
		}
		if err := s.client.ConfigureSSH(keyPath); err != nil {
			return syncerr.Wrap(syncerr.KindIOError, "configuring SSH command", err)
		}
	}

	remotes, err := s.client.ListRemotes()
	if err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "listing remotes", err)
	}
	hasRemote := false
	for _, r := range remotes {
		if r == s.remoteName {
			hasRemote = true
			break
		}
	}
	if !hasRemote {
		if err := s.client.AddRemote(s.remoteName, s.remoteURL); err != nil {
			return syncerr.Wrap(syncerr.KindIOError, "configuring remote", err)
		}
	} else if err := s.client.SetURL(s.remoteName, s.remoteURL); err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "updating remote URL", err)
	}

	return nil
}

func (s *GitStore) Stage(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := s.client.Add(paths...); err != nil {
		return syncerr.Wrap(syncerr.KindIOError, "staging files", err)
	}
	return nil
}

func (s *GitStore) HasStagedChanges(ctx context.Context) (bool, error) {
	has, err := s.client.HasStagedChanges()
	if err != nil {
		return false, syncerr.Wrap(syncerr.KindIOError, "checking staged changes", err)
	}
	return has, nil
}

func (s *GitStore) Commit(ctx context.Context, title, body string) (string, error) {
	message := title
	if body != "" {
		message = title + "\n\n" + body
	}
	hash, err := s.client.Commit(message)
	if err != nil {
		return "", syncerr.Wrap(syncerr.KindPublishError, "committing staged changes", err)
	}
	return hash, nil
}

func (s *GitStore) Publish(ctx context.Context) error {
	if s.bootstrap != nil {
		if owner, repo, ok := splitGitHubRemote(s.remoteURL); ok {
			if err := s.bootstrap.EnsureCreated(owner, repo, "WorldAnvil content mirror", true); err != nil {
				return syncerr.Wrap(syncerr.KindPublishError, "bootstrapping remote repository", err)
			}
		}
	}

	branch, err := s.client.GetCurrentBranch()
	if err != nil {
		return syncerr.Wrap(syncerr.KindPublishError, "resolving current branch", err)
	}
	if branch == "" || branch == "HEAD" {
		branch = s.branch
	}

	if err := s.client.PushSetUpstream(ctx, s.remoteName, branch); err != nil {
		return syncerr.Wrap(syncerr.KindPublishError, fmt.Sprintf("pushing %s to %s", branch, s.remoteName), err)
	}
	return nil
}

// splitGitHubRemote extracts owner/repo from a git@github.com:owner/repo.git
// SSH remote URL, the only shape remote_repo.remote_repository_url allows.
func splitGitHubRemote(remoteURL string) (owner, repo string, ok bool) {
	m := githubSSHRemotePattern.FindStringSubmatch(remoteURL)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
