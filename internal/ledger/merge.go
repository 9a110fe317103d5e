package ledger

import (
	"github.com/mojito-dev/mojito/internal/model"
)

// MergeStats summarizes one merge pass.
type MergeStats struct {
	Removed  int
	Appended int
}

// Merge folds freshly imported rows into the store. Everything pending
// is purged, along with every row dated at or after the earliest
// imported row; the importer over-fetches so those rows come back in
// the new batch. Rows strictly before the cutover keep any local edits
// untouched. An empty batch is a no-op.
func (s *Store) Merge(incoming []*model.Transaction) MergeStats {
	var stats MergeStats
	if len(incoming) == 0 {
		return stats
	}

	cutover := incoming[0].Date
	for _, t := range incoming[1:] {
		if t.Date.Before(cutover) {
			cutover = t.Date
		}
	}

	kept := s.rows[:0]
	for _, t := range s.rows {
		if t.State == model.StatePending || !t.Date.Before(cutover) {
			delete(s.byKey, t.RowKey)
			stats.Removed++
			continue
		}
		kept = append(kept, t)
	}
	s.rows = kept

	for _, t := range incoming {
		s.Insert(t)
		stats.Appended++
	}
	s.Sort()

	s.log.Info().
		Int("removed", stats.Removed).
		Int("appended", stats.Appended).
		Time("cutover", cutover).
		Msg("merged imported transactions")
	return stats
}
