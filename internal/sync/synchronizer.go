// Package sync implements the Synchronizer: the two-tier beacon/track
// change-detection protocol, file-index reconciliation, and per-kind
// commit/publish batching that drives a world's mirrored content into a
// VersionedStore.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	syncerr "github.com/lcgerke/wasync/internal/errors"
	"github.com/lcgerke/wasync/internal/objectsource"
	"github.com/lcgerke/wasync/internal/registry"
	"github.com/lcgerke/wasync/internal/store"
)

const (
	beaconRegFile    = "beacon_hash_reg"
	trackRegFile     = "track_hash_reg"
	fileIndexRegFile = "file_index"
)

// Synchronizer drives one world's worth of the protocol each tick, writing
// into a single shared working tree (registries and payload files are keyed
// by globally unique identifiers, so many worlds safely share one tree).
type Synchronizer struct {
	source objectsource.Source
	vstore store.VersionedStore

	beaconReg    *registry.Registry
	trackReg     *registry.Registry
	fileIndexReg *registry.Registry

	depths map[objectsource.Kind]objectsource.DepthTable
	log    *objectsource.Logger
}

// New builds a Synchronizer rooted at the store's working tree, creating
// the three registry files if absent.
func New(source objectsource.Source, vstore store.VersionedStore, depths map[objectsource.Kind]objectsource.DepthTable) (*Synchronizer, error) {
	if !objectsource.Valid(depths) {
		return nil, syncerr.New(syncerr.KindConfigError, "depth table violates beacon <= track or the [-1,9] range")
	}

	dir := vstore.WorkDir()
	beaconPath := filepath.Join(dir, beaconRegFile)
	trackPath := filepath.Join(dir, trackRegFile)
	indexPath := filepath.Join(dir, fileIndexRegFile)

	for _, p := range []string{beaconPath, trackPath, indexPath} {
		if err := registry.Init(p); err != nil {
			return nil, err
		}
	}

	return &Synchronizer{
		source:       objectsource.Validate(source),
		vstore:       vstore,
		beaconReg:    registry.Open(beaconPath),
		trackReg:     registry.Open(trackPath),
		fileIndexReg: registry.Open(indexPath),
		depths:       depths,
		log:          objectsource.NewLogger(),
	}, nil
}

// Tick runs one full pass over world: file-index reconciliation followed by
// the world, categories, and articles kind loops in that order.
func (s *Synchronizer) Tick(ctx context.Context, world WorldConfig) (*TickReport, error) {
	report := &TickReport{World: world.URL}

	if err := s.vstore.Checkout(ctx); err != nil {
		report.Err = err.Error()
		return report, err
	}

	principal, err := s.source.Identity(ctx)
	if err != nil {
		report.Err = err.Error()
		return report, err
	}

	worldRef, err := s.resolveWorld(ctx, principal, world.URL)
	if err != nil {
		report.Err = err.Error()
		return report, err
	}
	report.World = worldRef.ID

	tc := &TrackContext{
		Principal:          principal,
		World:              worldRef,
		ArticlesByCategory: map[string][]objectsource.Ref{},
		Depths:             s.depths,
	}

	if world.TrackCategories || world.TrackArticles {
		cats, err := s.source.ListCategories(ctx, worldRef.ID)
		if err != nil {
			s.log.Errorf("listing categories of world %s: %v", worldRef.ID, err)
		} else {
			tc.Categories = cats
		}
	}

	if world.TrackArticles {
		// The "-1" sentinel is appended to every article enumeration so
		// uncategorized articles are picked up after the categorized ones.
		catIDs := append(categoryIDs(tc.Categories), objectsource.UncategorizedSentinel)
		for _, catID := range catIDs {
			articles, err := s.source.ListArticles(ctx, worldRef.ID, catID)
			if err != nil {
				s.log.Errorf("listing articles of world %s category %s: %v", worldRef.ID, catID, err)
				continue
			}
			tc.ArticlesByCategory[catID] = articles
		}
	}

	if err := s.reconcileFileIndex(ctx, world, tc, report); err != nil {
		s.log.Errorf("file index reconciliation for world %s: %v", worldRef.ID, err)
	}

	if world.TrackWorld {
		outcome := s.processKind(ctx, objectsource.KindWorld, "World update",
			[]candidate{{id: worldRef.ID, url: worldRef.URL}})
		report.Kinds = append(report.Kinds, outcome)
	}

	if world.TrackCategories {
		cands := make([]candidate, 0, len(tc.Categories))
		for _, c := range tc.Categories {
			cands = append(cands, candidate{id: c.ID, url: worldRef.URL})
		}
		outcome := s.processKind(ctx, objectsource.KindCategory, "Categories update", cands)
		report.Kinds = append(report.Kinds, outcome)
	}

	if world.TrackArticles {
		all := tc.AllArticles()
		cands := make([]candidate, 0, len(all))
		for _, a := range all {
			cands = append(cands, candidate{id: a.Ref.ID, url: worldRef.URL})
		}
		outcome := s.processKind(ctx, objectsource.KindArticle, "Articles update", cands)
		report.Kinds = append(report.Kinds, outcome)
	}

	return report, nil
}

func categoryIDs(refs []objectsource.Ref) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

// resolveWorld matches the configured world URL against the principal's
// enumerated worlds to find its identifier.
func (s *Synchronizer) resolveWorld(ctx context.Context, principal, url string) (objectsource.Ref, error) {
	worlds, err := s.source.ListWorlds(ctx, principal)
	if err != nil {
		return objectsource.Ref{}, err
	}
	for _, w := range worlds {
		if w.URL == url {
			return w, nil
		}
	}
	return objectsource.Ref{}, syncerr.New(syncerr.KindNotFound, fmt.Sprintf("configured world %q not found among enumerated worlds", url))
}

// reconcileFileIndex assembles the identifiers this world is responsible
// for this tick and, if the merged index differs from the stored one,
// commits and publishes it as its own snapshot before any kind processing.
func (s *Synchronizer) reconcileFileIndex(ctx context.Context, world WorldConfig, tc *TrackContext, report *TickReport) error {
	delta := map[string]string{}
	if world.TrackWorld {
		delta[tc.World.ID] = objectsource.KindWorld.String()
	}
	if world.TrackCategories {
		for _, c := range tc.Categories {
			delta[c.ID] = objectsource.KindCategory.String()
		}
	}
	if world.TrackArticles {
		for _, a := range tc.AllArticles() {
			delta[a.Ref.ID] = objectsource.KindArticle.String()
		}
	}
	if len(delta) == 0 {
		return nil
	}

	current, err := s.fileIndexReg.Load()
	if err != nil {
		return err
	}
	merged := make(map[string]string, len(current)+len(delta))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range delta {
		merged[k] = v
	}

	same, err := s.fileIndexReg.CompareAgainstRegistry(merged)
	if err != nil {
		return err
	}
	if same {
		return nil
	}

	if err := s.fileIndexReg.UpdateRegistry(delta); err != nil {
		return err
	}

	if err := s.vstore.Stage(ctx, fileIndexRegFile); err != nil {
		return err
	}
	hash, err := s.vstore.Commit(ctx, "File index updated", "")
	if err != nil {
		return err
	}
	if err := s.vstore.Publish(ctx); err != nil {
		s.log.Errorf("publishing file index commit: %v", err)
	}
	report.FileIndexUpdated = true
	report.FileIndexCommit = hash
	return nil
}

type candidate struct {
	id  string
	url string
}

// processKind runs the beacon/track protocol over every candidate of one
// kind and, if anything changed, emits a single commit+publish for the kind.
func (s *Synchronizer) processKind(ctx context.Context, kind objectsource.Kind, title string, candidates []candidate) KindOutcome {
	outcome := KindOutcome{Kind: kind.String(), Candidates: len(candidates)}
	cb := NewCommitBuilder(beaconRegFile, trackRegFile)
	depths := s.depths[kind]
	workdir := s.vstore.WorkDir()

	// applied is the machine of the last candidate that reached Applied; it
	// carries the batch through Staged -> Committed -> Published below.
	var applied *Machine
	for _, cand := range candidates {
		m := NewMachine()
		changed, beaconChanged, skip, err := s.applyCandidate(ctx, kind, cand, depths, workdir, cb, m)
		if err != nil {
			m.Fail()
			if syncerr.Is(err, syncerr.KindNotFound) {
				outcome.SkippedNotFound++
				continue
			}
			s.log.Errorf("%s %s: %v", kind, cand.id, err)
			break // abort the rest of this kind for this world; a later tick retries
		}
		if beaconChanged {
			outcome.BeaconChanged++
		}
		if skip {
			continue
		}
		if changed {
			outcome.TrackChanged++
			applied = m
		}
	}

	if !cb.Dirty() || applied == nil {
		return outcome
	}

	if err := s.vstore.Stage(ctx, cb.Paths()...); err != nil {
		applied.Fail()
		s.log.Errorf("staging %s commit: %v", kind, err)
		return outcome
	}
	s.advance(applied, kind, StateStaged)

	hash, err := s.vstore.Commit(ctx, title, cb.Body())
	if err != nil {
		applied.Fail()
		s.log.Errorf("committing %s: %v", kind, err)
		return outcome
	}
	s.advance(applied, kind, StateCommitted)
	outcome.Committed = true
	outcome.CommitHash = hash
	cb.Flush()

	if err := s.vstore.Publish(ctx); err != nil {
		// Committed is a valid resting state: the local commit stands and
		// a later tick's publish pushes the accumulated snapshots.
		outcome.PublishError = err.Error()
		s.log.Errorf("publishing %s commit %s: %v", kind, hash, err)
		return outcome
	}
	s.advance(applied, kind, StatePublished)
	s.advance(applied, kind, StateIdle)
	return outcome
}

// advance moves m to next and logs the transition. An edge missing from the
// transition table indicates a protocol bug, so it is logged rather than
// silently ignored.
func (s *Synchronizer) advance(m *Machine, kind objectsource.Kind, next State) {
	from := m.State()
	if !m.Advance(next) {
		s.log.Errorf("%s: invalid state transition %s -> %s", kind, from, next)
		return
	}
	s.log.Infof("%s: %s -> %s", kind, from, next)
}

// applyCandidate runs steps 1-4 of the change-detection protocol for one
// identifier, advancing m through the fetch/apply states. changed reports a
// track-level write; beaconChanged reports whether the beacon hash moved (for
// reporting only); skip reports a clean STOP with no error (beacon or track
// unchanged).
func (s *Synchronizer) applyCandidate(ctx context.Context, kind objectsource.Kind, cand candidate, depths objectsource.DepthTable, workdir string, cb *CommitBuilder, m *Machine) (changed, beaconChanged, skip bool, err error) {
	beaconPayload, err := s.source.Get(ctx, kind, cand.id, depths.Beacon)
	if err != nil {
		return false, false, false, err
	}
	s.advance(m, kind, StateBeaconFetched)

	beaconSame, err := s.beaconReg.CompareAgainstEntry(cand.id, beaconPayload)
	if err != nil {
		return false, false, false, err
	}
	if beaconSame {
		s.advance(m, kind, StateIdle)
		return false, false, true, nil
	}

	if err := s.beaconReg.UpdateEntry(cand.id, beaconPayload); err != nil {
		return false, false, false, err
	}
	beaconChanged = true

	trackPayload, err := s.source.Get(ctx, kind, cand.id, depths.Track)
	if err != nil {
		return false, true, false, err
	}
	s.advance(m, kind, StateTrackFetched)

	trackSame, err := s.trackReg.CompareAgainstEntry(cand.id, trackPayload)
	if err != nil {
		return false, true, false, err
	}
	if trackSame {
		s.advance(m, kind, StateIdle)
		return false, true, true, nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, trackPayload, "", "  "); err != nil {
		return false, true, false, syncerr.Wrap(syncerr.KindIOError, "pretty-printing payload", err)
	}
	if err := os.WriteFile(filepath.Join(workdir, cand.id), pretty.Bytes(), 0644); err != nil {
		return false, true, false, syncerr.Wrap(syncerr.KindIOError, "writing tracked object file", err)
	}

	if err := s.trackReg.UpdateEntry(cand.id, trackPayload); err != nil {
		return false, true, false, err
	}
	s.advance(m, kind, StateApplied)

	cb.StagePath(cand.id)
	cb.AppendLine(fmt.Sprintf("%s: %s, beacon gran: %d, track_gran: %d", cand.id, cand.url, depths.Beacon, depths.Track))

	return true, true, false, nil
}
