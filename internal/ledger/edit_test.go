package ledger

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/model"
)

func testEditor(t *testing.T) (*Store, *Editor) {
	t.Helper()
	dir := directory.New(
		[]directory.Category{
			{Name: "Groceries", ID: 701},
			{Name: "Restaurants", ID: 702},
			{Name: "Financial", ID: 1401},
		},
		[]directory.Tag{
			{Name: "cleared", ID: 9001},
			{Name: "reconciled", ID: 9002},
			{Name: "vacation", ID: 9003},
		},
		"cleared", "reconciled", zerolog.Nop())
	s := NewStore(zerolog.Nop())
	return s, NewEditor(s, dir, zerolog.Nop())
}

func strp(s string) *string { return &s }

func TestApplyEditCanonicalizesAndMarks(t *testing.T) {
	s, e := testEditor(t)
	row := txn("2026-03-05", "WHOLEFDS", "-82.37")
	s.Load([]*model.Transaction{row})

	var notified *model.Transaction
	e.OnStatusChange = func(t *model.Transaction) { notified = t }

	tags := []string{"VACATION"}
	err := e.ApplyEdit(row, Change{
		Category: strp("restaurants"),
		Tags:     &tags,
	})
	require.NoError(t, err)

	assert.Equal(t, "Restaurants", row.Category)
	assert.Equal(t, int64(702), row.CategoryID)
	assert.Equal(t, []string{"vacation"}, row.Tags)
	assert.Equal(t, []int64{9003}, row.TagIDs)
	assert.Equal(t, "E", row.EditStatus.String())
	assert.Same(t, row, notified)
}

func TestApplyEditRejectsPendingRow(t *testing.T) {
	s, e := testEditor(t)
	row := txn("2026-03-05", "UBER", "-14.00")
	row.State = model.StatePending
	s.Load([]*model.Transaction{row})

	err := e.ApplyEdit(row, Change{Memo: strp("late night")})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Zero(t, row.EditStatus)
	assert.Empty(t, row.Memo)
}

func TestApplyEditBadCategoryMutatesNothing(t *testing.T) {
	s, e := testEditor(t)
	row := txn("2026-03-05", "WHOLEFDS", "-82.37")
	s.Load([]*model.Transaction{row})

	err := e.ApplyEdit(row, Change{
		Merchant: strp("Whole Foods"),
		Category: strp("Grocery"),
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "WHOLEFDS", row.Merchant)
	assert.Zero(t, row.EditStatus)
}

func TestFlagOnlyChangeRevalidatesTags(t *testing.T) {
	s, e := testEditor(t)
	row := txn("2026-03-05", "WHOLEFDS", "-82.37")
	row.Tags = []string{"vacation"}
	s.Load([]*model.Transaction{row})

	flag := model.CRReconciled
	require.NoError(t, e.ApplyEdit(row, Change{ClearRecon: &flag}))

	assert.Equal(t, model.CRReconciled, row.ClearRecon)
	assert.Equal(t, []string{"vacation"}, row.Tags)
	assert.Equal(t, []int64{9002, 9001, 9003}, row.TagIDs)
}

func TestStatusOrderingNeverES(t *testing.T) {
	_, e := testEditor(t)

	sequences := [][]model.EditStatus{
		{model.EditEdit, model.EditSplit},
		{model.EditSplit, model.EditEdit},
		{model.EditEdit, model.EditSplit, model.EditEdit, model.EditSplit},
		{model.EditDelete, model.EditEdit, model.EditSplit},
	}
	for _, seq := range sequences {
		row := txn("2026-03-05", "X", "-1.00")
		for _, m := range seq {
			require.NoError(t, e.Mark(row, m))
		}
		assert.NotContains(t, row.EditStatus.String(), "ES")
	}
}

func TestMarkNewOverEditedIsInvariantViolation(t *testing.T) {
	_, e := testEditor(t)
	row := txn("2026-03-05", "X", "-1.00")
	row.EditStatus = model.EditEdit

	err := e.Mark(row, model.EditNew)
	require.Error(t, err)
	assert.True(t, apperr.IsInvariant(err))
}

func TestInsertNewStampsDerivedFields(t *testing.T) {
	s, e := testEditor(t)
	row := txn("2026-03-05", "Landlord", "-1200.005")
	row.YearMonth = 0
	row.OrigAmount = dec("0")

	require.NoError(t, e.InsertNew(row))

	assert.Equal(t, 202603, row.YearMonth)
	assert.True(t, row.Amount.Equal(dec("-1200.01")), row.Amount.String())
	assert.True(t, row.OrigAmount.Equal(row.Amount))
	assert.Equal(t, "N", row.EditStatus.String())
	assert.Equal(t, 1, s.Len())
}

func TestInsertNewStaysNewAfterFurtherEdits(t *testing.T) {
	_, e := testEditor(t)
	row := txn("2026-03-05", "Landlord", "-1200.00")
	require.NoError(t, e.InsertNew(row))

	require.NoError(t, e.ApplyEdit(row, Change{Memo: strp("march rent")}))
	assert.Equal(t, "N", row.EditStatus.String())
	assert.Equal(t, "march rent", row.Memo)
}

func TestMarkDeleteRejectsPending(t *testing.T) {
	_, e := testEditor(t)
	row := txn("2026-03-05", "X", "-1.00")
	row.State = model.StatePending

	err := e.MarkDelete(row)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestClearStatus(t *testing.T) {
	_, e := testEditor(t)
	row := txn("2026-03-05", "X", "-1.00")
	row.EditStatus = model.EditSplit | model.EditEdit

	fired := 0
	e.OnStatusChange = func(*model.Transaction) { fired++ }
	e.ClearStatus(row)
	e.ClearStatus(row) // already clean, no second event

	assert.Zero(t, row.EditStatus)
	assert.Equal(t, 1, fired)
}

func TestEditableFieldGate(t *testing.T) {
	_, e := testEditor(t)
	row := txn("2026-03-05", "X", "-1.00")

	err := e.IsEditAllowed(row, Field("state"))
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.True(t, strings.Contains(err.Error(), "not editable"))

	assert.NoError(t, e.IsEditAllowed(row, FieldMemo))
}
