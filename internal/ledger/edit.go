package ledger

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/model"
)

// Field identifies one transaction column in an edit request.
type Field string

const (
	FieldDate       Field = "date"
	FieldMerchant   Field = "merchant"
	FieldAmount     Field = "amount"
	FieldCategory   Field = "category"
	FieldTags       Field = "tags"
	FieldClearRecon Field = "clear_recon"
	FieldMemo       Field = "memo"
)

// editableFields is the only set of columns a user edit may touch.
var editableFields = map[Field]bool{
	FieldDate:       true,
	FieldMerchant:   true,
	FieldAmount:     true,
	FieldCategory:   true,
	FieldTags:       true,
	FieldClearRecon: true,
	FieldMemo:       true,
}

// Change carries the new values for one edit. Only non-nil members are
// applied; validation happens against the merged before/after view, so
// changing the flag alone still re-validates the existing tags.
type Change struct {
	Date       *time.Time
	Merchant   *string
	Amount     *decimal.Decimal
	Category   *string
	Tags       *[]string
	ClearRecon *model.ClearRecon
	Memo       *string
}

func (c Change) fields() []Field {
	var fs []Field
	if c.Date != nil {
		fs = append(fs, FieldDate)
	}
	if c.Merchant != nil {
		fs = append(fs, FieldMerchant)
	}
	if c.Amount != nil {
		fs = append(fs, FieldAmount)
	}
	if c.Category != nil {
		fs = append(fs, FieldCategory)
	}
	if c.Tags != nil {
		fs = append(fs, FieldTags)
	}
	if c.ClearRecon != nil {
		fs = append(fs, FieldClearRecon)
	}
	if c.Memo != nil {
		fs = append(fs, FieldMemo)
	}
	return fs
}

// Editor validates user edits, applies them, and drives the edit-status
// markers. OnStatusChange, when set, fires after any marker change so
// the host can emphasize the row.
type Editor struct {
	store *Store
	dir   *directory.Directory
	log   zerolog.Logger

	OnStatusChange func(*model.Transaction)
}

// NewEditor creates an Editor over a store and directory.
func NewEditor(store *Store, dir *directory.Directory, log zerolog.Logger) *Editor {
	return &Editor{
		store: store,
		dir:   dir,
		log:   log.With().Str("component", "editor").Logger(),
	}
}

// IsEditAllowed reports whether a user edit to the given column may
// proceed. Pending rows reject every edit; columns outside the
// editable set are rejected regardless of state.
func (e *Editor) IsEditAllowed(t *model.Transaction, f Field) error {
	if t.State == model.StatePending {
		return apperr.Validationf("transaction %q is pending and cannot be edited", t.Merchant)
	}
	if !editableFields[f] {
		return apperr.Validationf("column %q is not editable", string(f))
	}
	return nil
}

// ApplyEdit validates and applies one user edit, then marks the row
// Edit. Nothing is mutated until every field has validated.
func (e *Editor) ApplyEdit(t *model.Transaction, c Change) error {
	for _, f := range c.fields() {
		if err := e.IsEditAllowed(t, f); err != nil {
			return err
		}
	}

	var cat directory.Category
	if c.Category != nil {
		var err error
		if cat, err = e.dir.ValidateCategory(*c.Category); err != nil {
			return err
		}
	}

	var tagSet directory.TagSet
	if c.Tags != nil || c.ClearRecon != nil {
		tags := t.Tags
		if c.Tags != nil {
			tags = *c.Tags
		}
		flag := t.ClearRecon
		if c.ClearRecon != nil {
			flag = *c.ClearRecon
		}
		var err error
		if tagSet, err = e.dir.ValidateTags(tags, flag); err != nil {
			return err
		}
	}

	if c.Date != nil {
		t.Date = *c.Date
		t.YearMonth = model.YearMonthOf(*c.Date)
	}
	if c.Merchant != nil {
		t.Merchant = *c.Merchant
	}
	if c.Amount != nil {
		t.Amount = c.Amount.Round(2)
	}
	if c.Category != nil {
		t.Category = cat.Name
		t.CategoryID = cat.ID
	}
	if c.Tags != nil || c.ClearRecon != nil {
		t.Tags = tagSet.Names
		t.TagIDs = tagSet.IDs
		t.ClearRecon = tagSet.Flag()
	}
	if c.Memo != nil {
		t.Memo = *c.Memo
	}

	return e.Mark(t, model.EditEdit)
}

// MarkDelete flags a row for deletion on the next sync. Pending rows
// cannot be deleted locally; they vanish on the next merge instead.
func (e *Editor) MarkDelete(t *model.Transaction) error {
	if t.State == model.StatePending {
		return apperr.Validationf("transaction %q is pending and cannot be deleted", t.Merchant)
	}
	return e.Mark(t, model.EditDelete)
}

// InsertNew validates a locally created transaction, stamps its
// derived fields, marks it New and inserts it into the ledger.
func (e *Editor) InsertNew(t *model.Transaction) error {
	if t.Date.IsZero() {
		return apperr.Validationf("new transaction needs a date")
	}
	cat, err := e.dir.ValidateCategory(t.Category)
	if err != nil {
		return err
	}
	tagSet, err := e.dir.ValidateTags(t.Tags, t.ClearRecon)
	if err != nil {
		return err
	}

	t.Category = cat.Name
	t.CategoryID = cat.ID
	t.Tags = tagSet.Names
	t.TagIDs = tagSet.IDs
	t.ClearRecon = tagSet.Flag()
	t.YearMonth = model.YearMonthOf(t.Date)
	t.Amount = t.Amount.Round(2)
	t.OrigAmount = t.Amount

	if err := e.Mark(t, model.EditNew); err != nil {
		return err
	}
	e.store.Insert(t)
	e.store.Sort()
	e.log.Debug().Str("merchant", t.Merchant).Str("amount", t.Amount.String()).
		Msg("inserted new transaction")
	return nil
}

// Mark applies one edit-status marker to a row, firing the status hook
// when the marker actually changes. A rejected transition is an
// invariant violation.
func (e *Editor) Mark(t *model.Transaction, m model.EditStatus) error {
	next, err := t.EditStatus.Apply(m)
	if err != nil {
		return apperr.Invariantf("transaction %d: %v", t.ID, err)
	}
	if next == t.EditStatus {
		return nil
	}
	t.EditStatus = next
	if e.OnStatusChange != nil {
		e.OnStatusChange(t)
	}
	return nil
}

// ClearStatus wipes a row's edit status after a successful upload.
func (e *Editor) ClearStatus(t *model.Transaction) {
	if t.EditStatus == 0 {
		return
	}
	t.EditStatus = 0
	if e.OnStatusChange != nil {
		e.OnStatusChange(t)
	}
}
