// Package ledger holds the in-memory transaction arena together with
// the merge, edit and tabular-mirror codec paths that operate on it.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mojito-dev/mojito/internal/model"
)

// Store is the ordered transaction arena. Rows are addressed by their
// RowKey, which survives sorting and merging; remote ids are just data.
// Callers serialize all mutating calls.
type Store struct {
	rows  []*model.Transaction
	byKey map[uuid.UUID]*model.Transaction
	log   zerolog.Logger
}

// NewStore creates an empty Store.
func NewStore(log zerolog.Logger) *Store {
	return &Store{
		byKey: make(map[uuid.UUID]*model.Transaction),
		log:   log.With().Str("component", "ledger").Logger(),
	}
}

// Load replaces the store contents with the given rows and sorts them.
// Rows without a RowKey are assigned one.
func (s *Store) Load(rows []*model.Transaction) {
	s.rows = s.rows[:0]
	s.byKey = make(map[uuid.UUID]*model.Transaction, len(rows))
	for _, t := range rows {
		s.Insert(t)
	}
	s.Sort()
}

// Rows returns the rows in ledger order. The slice is shared; callers
// must not reorder it.
func (s *Store) Rows() []*model.Transaction {
	return s.rows
}

// Len returns the row count.
func (s *Store) Len() int {
	return len(s.rows)
}

// Insert adds a row without re-sorting. A zero RowKey is assigned.
func (s *Store) Insert(t *model.Transaction) {
	if t.RowKey == uuid.Nil {
		t.RowKey = uuid.New()
	}
	s.rows = append(s.rows, t)
	s.byKey[t.RowKey] = t
}

// Remove deletes the row with the given key. It reports whether a row
// was removed.
func (s *Store) Remove(key uuid.UUID) bool {
	if _, ok := s.byKey[key]; !ok {
		return false
	}
	delete(s.byKey, key)
	for i, t := range s.rows {
		if t.RowKey == key {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return true
		}
	}
	return false
}

// ByRowKey finds a row by its arena key.
func (s *Store) ByRowKey(key uuid.UUID) (*model.Transaction, bool) {
	t, ok := s.byKey[key]
	return t, ok
}

// ByID finds a row by its remote id. Rows still carrying the
// temporary id 0 are never returned.
func (s *Store) ByID(id int64) (*model.Transaction, bool) {
	if id == 0 {
		return nil, false
	}
	for _, t := range s.rows {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// SplitGroup returns the members of a split group in ledger order.
func (s *Store) SplitGroup(parentID int64) []*model.Transaction {
	var group []*model.Transaction
	for _, t := range s.rows {
		if t.ParentID == parentID && parentID != 0 {
			group = append(group, t)
		}
	}
	return group
}

// Dirty returns the rows with a non-empty edit status, optionally
// restricted to one aggregator login ("" means all).
func (s *Store) Dirty(mintAccount string) []*model.Transaction {
	var dirty []*model.Transaction
	for _, t := range s.rows {
		if !t.IsDirty() {
			continue
		}
		if mintAccount != "" && t.MintAccount != mintAccount {
			continue
		}
		dirty = append(dirty, t)
	}
	return dirty
}

// Sort orders the arena by date descending, then ParentID ascending so
// split-group members stay adjacent.
func (s *Store) Sort() {
	sort.SliceStable(s.rows, func(i, j int) bool {
		a, b := s.rows[i], s.rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ParentID < b.ParentID
	})
}

// pendingTrustWindow is how far behind the newest transaction a pending
// row may sit before the import window stops honoring it. The
// aggregator sometimes freezes rows in pending state forever.
const pendingTrustWindow = 30 * 24 * time.Hour

// ImportWindow computes the date range the next import for an
// aggregator login should fetch. The start is the earliest trusted
// pending transaction minus the fudge factor, so in-flight pending rows
// are re-downloaded; without pending rows it is the newest transaction
// minus the fudge factor. An empty ledger starts at January 1 of the
// current year. The end is always the last day of the current month.
func (s *Store) ImportWindow(mintAccount string, fudgeDays int, now time.Time) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, 1, -1)

	var newest time.Time
	for _, t := range s.rows {
		if mintAccount != "" && t.MintAccount != mintAccount {
			continue
		}
		if t.Date.After(newest) {
			newest = t.Date
		}
	}
	if newest.IsZero() {
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), end
	}

	base := newest
	threshold := newest.Add(-pendingTrustWindow)
	for _, t := range s.rows {
		if mintAccount != "" && t.MintAccount != mintAccount {
			continue
		}
		if t.State != model.StatePending || t.Date.Before(threshold) {
			continue
		}
		if t.Date.Before(base) {
			base = t.Date
		}
	}

	start = base.AddDate(0, 0, -fudgeDays)
	s.log.Debug().
		Time("start", start).
		Time("end", end).
		Str("mint_account", mintAccount).
		Msg("computed import window")
	return start, end
}
