// Package store defines the VersionedStore capability the Synchronizer
// writes content into, and a GitStore implementation built on the local
// git package. The transport details (SSH auth, remote bootstrap) stay
// behind the interface; this package owns the working tree plumbing: stage
// the files a tick produced, commit them, and publish the commit to the
// configured remote.
package store

import "context"

// VersionedStore is the capability interface the per-(world,kind) state
// machine drives through Staged -> Committed -> Published.
type VersionedStore interface {
	// Checkout ensures the working tree exists locally and is on the
	// branch this daemon publishes to, cloning or initializing as needed.
	Checkout(ctx context.Context) error

	// Stage adds the given paths (relative to the working tree root) to
	// the index.
	Stage(ctx context.Context, paths ...string) error

	// HasStagedChanges reports whether a commit would have any content.
	HasStagedChanges(ctx context.Context) (bool, error)

	// Commit records a commit of everything currently staged and returns
	// its hash. body may be multi-line; it becomes the commit message
	// body under title.
	Commit(ctx context.Context, title, body string) (string, error)

	// Publish pushes the current branch to the configured remote.
	Publish(ctx context.Context) error

	// WorkDir returns the path of the working tree root (GitStore returns
	// it as configured, without making it absolute), so callers can resolve
	// relative paths before Stage.
	WorkDir() string
}
