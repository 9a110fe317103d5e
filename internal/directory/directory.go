// Package directory provides the case-insensitive category and tag
// name lookups the edit and rule paths depend on. It is an injected
// dependency: callers own loading, saving and invalidation.
package directory

import (
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/model"
)

// Category is one entry in the category table.
type Category struct {
	Name     string // canonical casing, as the remote system knows it
	ID       int64
	Standard bool
	ParentID int64
}

// Tag is one entry in the tag table.
type Tag struct {
	Name string
	ID   int64
}

// TagSet is the result of validating a transaction's tag cell together
// with its cleared/reconciled flag.
type TagSet struct {
	Names      []string // canonical tag names, cleared/reconciled excluded
	IDs        []int64  // every tag id, cleared/reconciled included
	Cleared    bool
	Reconciled bool
}

// Flag folds the cleared/reconciled booleans back into the flag enum.
func (s TagSet) Flag() model.ClearRecon {
	switch {
	case s.Reconciled:
		return model.CRReconciled
	case s.Cleared:
		return model.CRCleared
	default:
		return model.CRNone
	}
}

// maxSuggestDistance bounds how far a "did you mean" match may be.
const maxSuggestDistance = 3

// Directory holds the category and tag tables plus the two reserved
// tag names that encode the cleared/reconciled flag remotely.
type Directory struct {
	categories    []Category
	tags          []Tag
	catByName     map[string]Category
	tagByName     map[string]Tag
	clearedTag    string
	reconciledTag string
	log           zerolog.Logger
}

// New creates a Directory. clearedTag and reconciledTag may be empty,
// which disables the cleared/reconciled feature.
func New(categories []Category, tags []Tag, clearedTag, reconciledTag string, log zerolog.Logger) *Directory {
	d := &Directory{
		categories:    categories,
		tags:          tags,
		catByName:     make(map[string]Category, len(categories)),
		tagByName:     make(map[string]Tag, len(tags)),
		clearedTag:    clearedTag,
		reconciledTag: reconciledTag,
		log:           log.With().Str("component", "directory").Logger(),
	}
	for _, c := range categories {
		d.catByName[strings.ToLower(c.Name)] = c
	}
	for _, t := range tags {
		d.tagByName[strings.ToLower(t.Name)] = t
	}
	return d
}

// Categories returns the category table.
func (d *Directory) Categories() []Category {
	return d.categories
}

// Tags returns the tag table.
func (d *Directory) Tags() []Tag {
	return d.tags
}

// ClearedTag returns the tag name that marks a cleared transaction.
func (d *Directory) ClearedTag() string {
	return d.clearedTag
}

// ReconciledTag returns the tag name that marks a reconciled transaction.
func (d *Directory) ReconciledTag() string {
	return d.reconciledTag
}

// ClearReconEnabled reports whether both reserved tags are configured.
func (d *Directory) ClearReconEnabled() bool {
	return d.clearedTag != "" && d.reconciledTag != ""
}

// LookupCategory finds a category by name, case-insensitively.
func (d *Directory) LookupCategory(name string) (Category, bool) {
	c, ok := d.catByName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// LookupTag finds a tag by name, case-insensitively.
func (d *Directory) LookupTag(name string) (Tag, bool) {
	t, ok := d.tagByName[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// ValidateCategory resolves a category name to its canonical entry or
// reports a validation error, with a nearest-name suggestion when one
// is close enough.
func (d *Directory) ValidateCategory(name string) (Category, error) {
	if strings.TrimSpace(name) == "" {
		return Category{}, apperr.Validationf("category is empty")
	}
	c, ok := d.LookupCategory(name)
	if !ok {
		if hint := d.SuggestCategory(name); hint != "" {
			return Category{}, apperr.Validationf("category %q is not valid (did you mean %q?)", name, hint)
		}
		return Category{}, apperr.Validationf("category %q is not valid", name)
	}
	return c, nil
}

// SuggestCategory returns the closest known category name, or "" when
// nothing is within editing distance.
func (d *Directory) SuggestCategory(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	best := ""
	bestDist := maxSuggestDistance + 1
	for _, c := range d.categories {
		dist := levenshtein.ComputeDistance(lower, strings.ToLower(c.Name))
		if dist < bestDist {
			best = c.Name
			bestDist = dist
		}
	}
	return best
}

// ValidateTags resolves a transaction's tag names together with its
// cleared/reconciled flag. The reserved cleared/reconciled tags are
// folded into the TagSet booleans rather than the name list, matching
// the remote system's encoding. Unknown tags are validation errors.
func (d *Directory) ValidateTags(tags []string, flag model.ClearRecon) (TagSet, error) {
	if flag != model.CRNone && !d.ClearReconEnabled() {
		return TagSet{}, apperr.Validationf(
			"cannot mark a transaction cleared or reconciled until the cleared and reconciled tags are configured")
	}

	var all []string
	switch flag {
	case model.CRReconciled:
		// Reconciled rows are also cleared, so both tags travel.
		all = append(all, d.reconciledTag, d.clearedTag)
	case model.CRCleared:
		all = append(all, d.clearedTag)
	}
	all = append(all, tags...)

	var set TagSet
	for _, name := range all {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := d.LookupTag(name)
		if !ok {
			d.log.Debug().Str("tag", name).Msg("tag lookup miss")
			return TagSet{}, apperr.Validationf("tag %q is not valid; add it in the aggregator first", name)
		}
		switch t.Name {
		case d.clearedTag:
			set.Cleared = true
		case d.reconciledTag:
			set.Reconciled = true
			set.Cleared = true
		default:
			set.Names = append(set.Names, t.Name)
		}
		set.IDs = append(set.IDs, t.ID)
	}
	return set, nil
}
