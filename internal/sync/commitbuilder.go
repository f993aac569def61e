package sync

import "strings"

// CommitBuilder accumulates the staged path list and commit-body text for
// one in-progress kind commit, seeded with the beacon and track hash
// registry files so a flush always re-stages them alongside whatever
// identifiers changed.
type CommitBuilder struct {
	seed  []string
	paths []string
	body  strings.Builder
	lines int
}

// NewCommitBuilder seeds a builder with the registry file names that must
// be staged alongside every commit this kind produces.
func NewCommitBuilder(registryFiles ...string) *CommitBuilder {
	cb := &CommitBuilder{seed: append([]string(nil), registryFiles...)}
	cb.reset()
	return cb
}

func (cb *CommitBuilder) reset() {
	cb.paths = append([]string(nil), cb.seed...)
	cb.body.Reset()
	cb.lines = 0
}

// StagePath appends path to the list staged by the next commit; it does not
// check for duplicates.
func (cb *CommitBuilder) StagePath(path string) {
	cb.paths = append(cb.paths, path)
}

// AppendLine appends one line to the commit body.
func (cb *CommitBuilder) AppendLine(line string) {
	cb.body.WriteString(line)
	cb.body.WriteByte('\n')
	cb.lines++
}

// Dirty reports whether any change-bearing line has been appended — an
// empty builder (only the registry seed paths) produces no commit.
func (cb *CommitBuilder) Dirty() bool {
	return cb.lines > 0
}

// Paths returns the accumulated staged path list.
func (cb *CommitBuilder) Paths() []string {
	return append([]string(nil), cb.paths...)
}

// Body returns the accumulated commit body text.
func (cb *CommitBuilder) Body() string {
	return cb.body.String()
}

// Flush clears accumulated state after a successful commit.
func (cb *CommitBuilder) Flush() {
	cb.reset()
}
