package sync

import "github.com/lcgerke/wasync/internal/objectsource"

// WorldConfig is one entry of the track.worlds configuration list: a world
// to mirror, and which kinds within it to track.
type WorldConfig struct {
	ID              string
	URL             string
	TrackWorld      bool
	TrackCategories bool
	TrackArticles   bool
}

// TrackContext is rebuilt once per world per tick — a plain value, not a
// live object the Synchronizer calls back into. It holds everything the
// per-kind loops need: the resolved principal, the world's category/article
// topology as enumerated this tick, and the depth tables to apply.
type TrackContext struct {
	Principal          string
	World              objectsource.Ref
	Categories         []objectsource.Ref
	ArticlesByCategory map[string][]objectsource.Ref
	Depths             map[objectsource.Kind]objectsource.DepthTable
}

// AllArticles flattens ArticlesByCategory in a stable category order for
// iteration, pairing each article with the category id it was enumerated
// under (UncategorizedSentinel for uncategorized articles).
func (tc *TrackContext) AllArticles() []articleEntry {
	entries := make([]articleEntry, 0)
	for _, cat := range tc.Categories {
		for _, a := range tc.ArticlesByCategory[cat.ID] {
			entries = append(entries, articleEntry{Category: cat.ID, Ref: a})
		}
	}
	for _, a := range tc.ArticlesByCategory[objectsource.UncategorizedSentinel] {
		entries = append(entries, articleEntry{Category: objectsource.UncategorizedSentinel, Ref: a})
	}
	return entries
}

type articleEntry struct {
	Category string
	Ref      objectsource.Ref
}
