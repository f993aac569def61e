package sync

// KindOutcome summarizes what happened to one kind during a tick.
type KindOutcome struct {
	Kind            string
	Candidates      int
	BeaconChanged   int
	TrackChanged    int
	SkippedNotFound int
	Committed       bool
	CommitHash      string
	PublishError    string
}

// TickReport is returned once per world per tick: per-kind outcomes bounded
// to what actually happened. The Scheduler logs a summary of it; it is not
// persisted, so the status command does not show it.
type TickReport struct {
	World             string
	FileIndexUpdated  bool
	FileIndexCommit   string
	Kinds             []KindOutcome
	Err               string
}

// AnyChanges reports whether this tick produced any commit at all.
func (r *TickReport) AnyChanges() bool {
	if r.FileIndexUpdated {
		return true
	}
	for _, k := range r.Kinds {
		if k.Committed {
			return true
		}
	}
	return false
}
