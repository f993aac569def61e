package sync

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	syncerr "github.com/lcgerke/wasync/internal/errors"
	"github.com/lcgerke/wasync/internal/objectsource"
)

// fakeCommit records one Commit call's title and body.
type fakeCommit struct {
	title string
	body  string
}

// fakeStore is an in-memory VersionedStore for testing the Synchronizer
// without shelling out to git.
type fakeStore struct {
	dir      string
	staged   map[string]bool
	batches  [][]string
	commits  []fakeCommit
	publishN int
}

func newFakeStore(t *testing.T) *fakeStore {
	return &fakeStore{dir: t.TempDir(), staged: map[string]bool{}}
}

func (f *fakeStore) Checkout(ctx context.Context) error { return nil }
func (f *fakeStore) Stage(ctx context.Context, paths ...string) error {
	f.batches = append(f.batches, append([]string(nil), paths...))
	for _, p := range paths {
		f.staged[p] = true
	}
	return nil
}
func (f *fakeStore) HasStagedChanges(ctx context.Context) (bool, error) {
	return len(f.staged) > 0, nil
}
func (f *fakeStore) Commit(ctx context.Context, title, body string) (string, error) {
	f.commits = append(f.commits, fakeCommit{title: title, body: body})
	f.staged = map[string]bool{}
	return "deadbeef", nil
}
func (f *fakeStore) Publish(ctx context.Context) error {
	f.publishN++
	return nil
}
func (f *fakeStore) WorkDir() string { return f.dir }

const testWorldID = "550e8400-e29b-41d4-a716-446655440000"
const testCategoryID = "550e8400-e29b-41d4-a716-446655440001"
const testArticleID = "550e8400-e29b-41d4-a716-446655440002"

// scriptedSource returns a fixed payload per (kind, id, depth) pair, counting
// calls so tests can assert on beacon-gating behavior.
type scriptedSource struct {
	worldURL      string
	payloads      map[string]string // key: kind/id/depth
	calls         map[string]int
	uncategorized []objectsource.Ref
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{worldURL: "https://worldanvil.example/w", payloads: map[string]string{}, calls: map[string]int{}}
}

func key(kind objectsource.Kind, id string, depth int) string {
	return kind.String() + "/" + id + "/" + itoa(depth)
}

func itoa(n int) string {
	if n < 0 {
		return "-" + itoa(-n)
	}
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func (s *scriptedSource) Identity(ctx context.Context) (string, error) { return "principal-1", nil }

func (s *scriptedSource) ListWorlds(ctx context.Context, principal string) ([]objectsource.Ref, error) {
	return []objectsource.Ref{{ID: testWorldID, URL: s.worldURL}}, nil
}

func (s *scriptedSource) ListCategories(ctx context.Context, world string) ([]objectsource.Ref, error) {
	return []objectsource.Ref{{ID: testCategoryID}}, nil
}

func (s *scriptedSource) ListArticles(ctx context.Context, world, category string) ([]objectsource.Ref, error) {
	if category == testCategoryID {
		return []objectsource.Ref{{ID: testArticleID}}, nil
	}
	if category == objectsource.UncategorizedSentinel {
		return s.uncategorized, nil
	}
	return nil, nil
}

func (s *scriptedSource) Get(ctx context.Context, kind objectsource.Kind, id string, depth int) (objectsource.Payload, error) {
	k := key(kind, id, depth)
	s.calls[k]++
	payload, ok := s.payloads[k]
	if !ok {
		return objectsource.Payload(`{}`), nil
	}
	return objectsource.Payload(payload), nil
}

func testWorldConfig() WorldConfig {
	return WorldConfig{
		ID:              testWorldID,
		URL:             "https://worldanvil.example/w",
		TrackWorld:      true,
		TrackCategories: true,
		TrackArticles:   true,
	}
}

func TestSynchronizer_FirstTickAppliesEverything(t *testing.T) {
	src := newScriptedSource()
	fs := newFakeStore(t)

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if !report.FileIndexUpdated {
		t.Fatal("expected file index to be written on first tick")
	}
	if !report.AnyChanges() {
		t.Fatal("expected changes on first tick")
	}

	for _, kind := range report.Kinds {
		if kind.Candidates == 0 {
			continue
		}
		if !kind.Committed {
			t.Errorf("kind %s: expected a commit on first tick", kind.Kind)
		}
		if kind.TrackChanged == 0 {
			t.Errorf("kind %s: expected at least one track change", kind.Kind)
		}
	}

	for _, id := range []string{testWorldID, testCategoryID, testArticleID} {
		if _, err := os.Stat(filepath.Join(fs.dir, id)); err != nil {
			t.Errorf("expected payload file for %s to exist: %v", id, err)
		}
	}

	wantTitles := []string{"File index updated", "World update", "Categories update", "Articles update"}
	if len(fs.commits) != len(wantTitles) {
		t.Fatalf("got %d commits, want %d: %+v", len(fs.commits), len(wantTitles), fs.commits)
	}
	for i, want := range wantTitles {
		if fs.commits[i].title != want {
			t.Errorf("commit %d title = %q, want %q", i, fs.commits[i].title, want)
		}
	}

	// The file index snapshot stages nothing but the index itself.
	if len(fs.batches) == 0 || len(fs.batches[0]) != 1 || fs.batches[0][0] != "file_index" {
		t.Errorf("first stage batch = %v, want just file_index", fs.batches)
	}

	// Kind commits stage the changed id plus both hash registries, and only
	// those: the file index is reconciled separately and must not reappear.
	if len(fs.batches) < 2 {
		t.Fatalf("expected a stage batch for the world kind, got %v", fs.batches)
	}
	worldBatch := fs.batches[1]
	want := map[string]bool{beaconRegFile: true, trackRegFile: true, testWorldID: true}
	if len(worldBatch) != len(want) {
		t.Errorf("world stage batch = %v, want beacon/track registries plus the world id", worldBatch)
	}
	for _, p := range worldBatch {
		if !want[p] {
			t.Errorf("world stage batch contains unexpected path %q", p)
		}
	}

	worldBody := fs.commits[1].body
	if !strings.HasPrefix(worldBody, testWorldID+": ") {
		t.Errorf("world commit body = %q, want a line starting with the world id", worldBody)
	}
	if !strings.Contains(worldBody, "beacon gran: 0, track_gran: 1") {
		t.Errorf("world commit body = %q, want the beacon/track granularities", worldBody)
	}
	if !strings.HasSuffix(worldBody, "\n") {
		t.Errorf("world commit body %q must be newline-terminated", worldBody)
	}
}

func TestSynchronizer_SecondTickIsNoOpWhenUnchanged(t *testing.T) {
	src := newScriptedSource()
	fs := newFakeStore(t)

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := sync.Tick(context.Background(), testWorldConfig()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	beaconCallsBefore := src.calls[key(objectsource.KindArticle, testArticleID, objectsource.DefaultDepths[objectsource.KindArticle].Beacon)]
	publishesBefore := fs.publishN

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	if report.FileIndexUpdated {
		t.Fatal("expected no file index change on second, unchanged tick")
	}
	if fs.publishN != publishesBefore {
		t.Errorf("expected no publish on an unchanged tick, got %d new publishes", fs.publishN-publishesBefore)
	}
	for _, kind := range report.Kinds {
		if kind.Committed {
			t.Errorf("kind %s: expected no commit on unchanged second tick", kind.Kind)
		}
		if kind.TrackChanged != 0 {
			t.Errorf("kind %s: expected zero track changes on unchanged tick", kind.Kind)
		}
	}

	beaconCallsAfter := src.calls[key(objectsource.KindArticle, testArticleID, objectsource.DefaultDepths[objectsource.KindArticle].Beacon)]
	if beaconCallsAfter != beaconCallsBefore+1 {
		t.Errorf("expected exactly one new beacon fetch on the second tick, got delta %d", beaconCallsAfter-beaconCallsBefore)
	}

	trackDepth := objectsource.DefaultDepths[objectsource.KindArticle].Track
	if src.calls[key(objectsource.KindArticle, testArticleID, trackDepth)] != 1 {
		t.Error("expected track depth not to be fetched again once the beacon is unchanged")
	}
}

func TestSynchronizer_BeaconChangedButTrackSameSkipsApply(t *testing.T) {
	src := newScriptedSource()
	fs := newFakeStore(t)

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := sync.Tick(context.Background(), testWorldConfig()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	beaconDepth := objectsource.DefaultDepths[objectsource.KindArticle].Beacon
	src.payloads[key(objectsource.KindArticle, testArticleID, beaconDepth)] = `{"cheap_field":"changed"}`

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}

	for _, kind := range report.Kinds {
		if kind.Kind != "article" {
			continue
		}
		if kind.BeaconChanged != 1 {
			t.Errorf("expected exactly one beacon change, got %d", kind.BeaconChanged)
		}
		if kind.TrackChanged != 0 {
			t.Errorf("expected zero track changes when track payload unchanged, got %d", kind.TrackChanged)
		}
		if kind.Committed {
			t.Error("expected no commit when only the beacon moved")
		}
	}
}

// notFoundOnceSource wraps scriptedSource and fails the first Get call for a
// chosen id with NotFound, to exercise the skip-this-candidate path.
type notFoundOnceSource struct {
	*scriptedSource
	failID string
	failed bool
}

func (s *notFoundOnceSource) Get(ctx context.Context, kind objectsource.Kind, id string, depth int) (objectsource.Payload, error) {
	if id == s.failID && !s.failed {
		s.failed = true
		return nil, syncerr.New(syncerr.KindNotFound, "object not found")
	}
	return s.scriptedSource.Get(ctx, kind, id, depth)
}

func TestSynchronizer_NotFoundSkipsCandidateWithoutAbortingKind(t *testing.T) {
	inner := newScriptedSource()
	src := &notFoundOnceSource{scriptedSource: inner, failID: testArticleID}
	fs := newFakeStore(t)

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	for _, kind := range report.Kinds {
		if kind.Kind != "article" {
			continue
		}
		if kind.SkippedNotFound != 1 {
			t.Errorf("expected exactly one skipped NotFound candidate, got %d", kind.SkippedNotFound)
		}
	}
}

const testUncategorizedArticleID = "550e8400-e29b-41d4-a716-446655440003"

// Articles enumerated under the "-1" sentinel category are file-indexed as
// "article" and processed exactly once per tick, alongside categorized
// articles.
func TestSynchronizer_UncategorizedArticlesAreTrackedOnce(t *testing.T) {
	src := newScriptedSource()
	src.uncategorized = []objectsource.Ref{{ID: testUncategorizedArticleID}}
	fs := newFakeStore(t)

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(fs.dir, testUncategorizedArticleID)); err != nil {
		t.Errorf("expected payload file for uncategorized article to exist: %v", err)
	}

	index, err := sync.fileIndexReg.Load()
	if err != nil {
		t.Fatalf("loading file index: %v", err)
	}
	if index[testUncategorizedArticleID] != objectsource.KindArticle.String() {
		t.Errorf("file_index[%s] = %q, want %q", testUncategorizedArticleID, index[testUncategorizedArticleID], objectsource.KindArticle.String())
	}

	calls := src.calls[key(objectsource.KindArticle, testUncategorizedArticleID, objectsource.DefaultDepths[objectsource.KindArticle].Beacon)]
	if calls != 1 {
		t.Errorf("expected exactly one beacon fetch for the uncategorized article, got %d", calls)
	}

	for _, kind := range report.Kinds {
		if kind.Kind == "article" && kind.Candidates != 2 {
			t.Errorf("expected 2 article candidates (categorized + uncategorized), got %d", kind.Candidates)
		}
	}
}

// failingPublishStore wraps fakeStore and fails Publish a fixed number of
// times before succeeding: a publish failure is logged, the local commit
// stands, and processing continues to the next kind.
type failingPublishStore struct {
	*fakeStore
	failures  int
	published int
}

func (f *failingPublishStore) Publish(ctx context.Context) error {
	f.published++
	if f.published <= f.failures {
		return syncerr.New(syncerr.KindPublishError, "simulated push failure")
	}
	return f.fakeStore.Publish(ctx)
}

func TestSynchronizer_PublishFailureDoesNotAbortTick(t *testing.T) {
	src := newScriptedSource()
	// The first publish of the tick belongs to the file-index commit; failing
	// the first two makes the World kind's publish the last failure.
	fs := &failingPublishStore{fakeStore: newFakeStore(t), failures: 2}

	sync, err := New(src, fs, objectsource.DefaultDepths)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	report, err := sync.Tick(context.Background(), testWorldConfig())
	if err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	var worldOutcome, categoriesOutcome KindOutcome
	for _, k := range report.Kinds {
		switch k.Kind {
		case "world":
			worldOutcome = k
		case "category":
			categoriesOutcome = k
		}
	}

	if !worldOutcome.Committed {
		t.Fatal("expected the world kind to commit locally despite the publish failure")
	}
	if worldOutcome.PublishError == "" {
		t.Error("expected the world kind outcome to record the publish error")
	}
	if !categoriesOutcome.Committed {
		t.Error("expected the tick to continue to the categories kind after the world publish failed")
	}

	if len(fs.commits) == 0 {
		t.Fatal("expected local commits to persist despite the publish failure")
	}
}
