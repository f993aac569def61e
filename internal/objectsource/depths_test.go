package objectsource

import "testing"

func TestDefaultDepths_Valid(t *testing.T) {
	if !Valid(DefaultDepths) {
		t.Fatal("DefaultDepths must satisfy beacon <= track and the [-1,9] range")
	}
}

func TestValid_RejectsBeaconAboveTrack(t *testing.T) {
	bad := map[Kind]DepthTable{
		KindWorld: {Beacon: 2, Track: 1},
	}
	if Valid(bad) {
		t.Fatal("expected Valid to reject beacon > track")
	}
}

func TestValid_RejectsOutOfRangeDepth(t *testing.T) {
	bad := map[Kind]DepthTable{
		KindWorld: {Beacon: -2, Track: 1},
	}
	if Valid(bad) {
		t.Fatal("expected Valid to reject depth below -1")
	}
	bad2 := map[Kind]DepthTable{
		KindWorld: {Beacon: 0, Track: 10},
	}
	if Valid(bad2) {
		t.Fatal("expected Valid to reject depth above 9")
	}
}
