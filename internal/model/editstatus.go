package model

import (
	"fmt"
	"strings"
)

// EditStatus is the set of pending-change markers on a transaction,
// serialized as an ordered string in the tabular mirror. Canonical
// forms are "", "N", "E", "S", "D" and "SE"; Split always sorts
// before Edit.
type EditStatus uint8

const (
	EditNew EditStatus = 1 << iota
	EditSplit
	EditEdit
	EditDelete
)

// Has reports whether the status contains the given marker.
func (s EditStatus) Has(m EditStatus) bool {
	return s&m != 0
}

// String returns the canonical serialized form.
func (s EditStatus) String() string {
	var b strings.Builder
	if s.Has(EditNew) {
		b.WriteByte('N')
	}
	if s.Has(EditSplit) {
		b.WriteByte('S')
	}
	if s.Has(EditEdit) {
		b.WriteByte('E')
	}
	if s.Has(EditDelete) {
		b.WriteByte('D')
	}
	return b.String()
}

// ParseEditStatus parses a serialized edit status. Unknown markers are
// an error; ordering in the input is not significant.
func ParseEditStatus(v string) (EditStatus, error) {
	var s EditStatus
	for _, r := range strings.ToUpper(strings.TrimSpace(v)) {
		switch r {
		case 'N':
			s |= EditNew
		case 'S':
			s |= EditSplit
		case 'E':
			s |= EditEdit
		case 'D':
			s |= EditDelete
		default:
			return 0, fmt.Errorf("unknown edit status marker %q in %q", r, v)
		}
	}
	return s, nil
}

// Apply returns the status after applying one edit marker, following
// the transition table:
//
//   - empty status takes the marker as-is
//   - a New row stays New no matter what is applied
//   - New over any other marker is a corruption signal
//   - re-applying a present marker is a no-op
//   - Split and Edit combine; Delete replaces whatever was there
//
// The returned error is an invariant violation, not user error.
func (s EditStatus) Apply(m EditStatus) (EditStatus, error) {
	switch {
	case s == 0:
		return m, nil
	case s == EditNew:
		// A brand-new row keeps its New marker across further edits.
		return s, nil
	case m == EditNew:
		return 0, fmt.Errorf("edit status cannot change from %q to %q", s, EditNew)
	case s.Has(m):
		return s, nil
	case m == EditSplit, m == EditEdit:
		return s | m, nil
	default:
		return m, nil
	}
}

// Strip removes a marker from the status.
func (s EditStatus) Strip(m EditStatus) EditStatus {
	return s &^ m
}
