package objectsource

// DepthTable holds the beacon (cheap) and track (full) fetch depths for one
// Kind. Beacon must not exceed Track.
type DepthTable struct {
	Beacon int
	Track  int
}

// DefaultDepths is the compiled-in depth table: beacon 0/0/-1,
// track 1/1/1 for world/category/article.
var DefaultDepths = map[Kind]DepthTable{
	KindWorld:    {Beacon: 0, Track: 1},
	KindCategory: {Beacon: 0, Track: 1},
	KindArticle:  {Beacon: -1, Track: 1},
}

// Valid reports whether every configured depth table satisfies
// beacon <= track and the [-1, 9] range.
func Valid(depths map[Kind]DepthTable) bool {
	for _, d := range depths {
		if !ValidDepth(d.Beacon) || !ValidDepth(d.Track) {
			return false
		}
		if d.Beacon > d.Track {
			return false
		}
	}
	return true
}
