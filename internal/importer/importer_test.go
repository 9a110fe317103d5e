package importer

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/model"
)

const sampleFeed = `{
  "set": [
    {"id": "accounts", "data": []},
    {"id": "transactions", "data": [
      {"id": 9001, "date": "Aug 15", "account": "Checking",
       "merchant": "Whole Foods", "omerchant": "WHOLEFDS #1234",
       "amount": "$1,234.56", "isDebit": true,
       "category": "Groceries", "categoryId": 701,
       "labels": [{"id": 9003, "name": "vacation"}],
       "note": "weekly shop"}
    ]}
  ]
}`

func testConverter() *Converter {
	dir := directory.New(
		[]directory.Category{{Name: "Groceries", ID: 701}},
		[]directory.Tag{
			{Name: "cleared", ID: 9001},
			{Name: "reconciled", ID: 9002},
			{Name: "vacation", ID: 9003},
		},
		"cleared", "reconciled", zerolog.Nop())
	return NewConverter(dir, zerolog.Nop())
}

func feedTxn() FeedTransaction {
	return FeedTransaction{
		ID:         9001,
		Date:       "3/5/26",
		Account:    "Checking",
		Merchant:   "Whole Foods",
		OMerchant:  "WHOLEFDS #1234",
		Amount:     "$82.37",
		IsDebit:    true,
		Category:   "Groceries",
		CategoryID: 701,
	}
}

var importedAt = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func decimalFrom(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestParseFeedEnvelope(t *testing.T) {
	p := &FeedParser{}

	feed, err := p.Parse(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, int64(9001), feed[0].ID)
	assert.Equal(t, "$1,234.56", feed[0].Amount)
}

func TestParseFeedMissingTransactionsSet(t *testing.T) {
	p := &FeedParser{}

	_, err := p.Parse(strings.NewReader(`{"set":[{"id":"accounts","data":[]}]}`))
	require.Error(t, err)
}

func TestConvertBasics(t *testing.T) {
	c := testConverter()

	txns := c.Convert([]FeedTransaction{feedTxn()}, "alice@example.com", importedAt)
	require.Len(t, txns, 1)

	got := txns[0]
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, importedAt, got.ImportDate)
	assert.Equal(t, 202603, got.YearMonth)
	assert.Equal(t, "alice@example.com", got.MintAccount)
	assert.Equal(t, "WHOLEFDS #1234", got.OrigMerchantInfo)
	assert.True(t, got.Amount.Equal(decimalFrom(t, "-82.37")))
	assert.True(t, got.OrigAmount.Equal(got.Amount))
	assert.Equal(t, model.StateNormal, got.State)
}

func TestConvertSkipsDuplicates(t *testing.T) {
	c := testConverter()
	dup := feedTxn()
	dup.IsDuplicate = true

	txns := c.Convert([]FeedTransaction{dup, feedTxn()}, "a", importedAt)
	assert.Len(t, txns, 1)
}

func TestConvertSkipsUnparseableRows(t *testing.T) {
	c := testConverter()
	badDate := feedTxn()
	badDate.Date = "someday"
	badAmount := feedTxn()
	badAmount.Amount = "many dollars"

	txns := c.Convert([]FeedTransaction{badDate, badAmount}, "a", importedAt)
	assert.Empty(t, txns)
}

func TestConvertRoutesReservedTagsToFlag(t *testing.T) {
	c := testConverter()
	f := feedTxn()
	f.Labels = []FeedLabel{
		{ID: 9002, Name: "reconciled"},
		{ID: 9001, Name: "cleared"},
		{ID: 9003, Name: "vacation"},
	}

	txns := c.Convert([]FeedTransaction{f}, "a", importedAt)
	require.Len(t, txns, 1)

	got := txns[0]
	assert.Equal(t, model.CRReconciled, got.ClearRecon)
	assert.Equal(t, []string{"vacation"}, got.Tags)
	assert.Equal(t, []int64{9002, 9001, 9003}, got.TagIDs)
}

func TestConvertExtractsPropsFromNote(t *testing.T) {
	c := testConverter()
	f := feedTxn()
	f.IsPending = true
	f.Note = "Ending balance: 900.00\n\n\n;;{\"pending\":\"ignore\",\"type\":\"reconcile\"}"

	txns := c.Convert([]FeedTransaction{f}, "a", importedAt)
	require.Len(t, txns, 1)

	got := txns[0]
	assert.Equal(t, "Ending balance: 900.00", got.Memo)
	assert.Equal(t, "reconcile", got.Props.Get(model.PropType))
	// The props payload overrides the pending flag.
	assert.Equal(t, model.StateNormal, got.State)
}

func TestConvertPendingAndChildren(t *testing.T) {
	c := testConverter()
	pending := feedTxn()
	pending.IsPending = true
	child := feedTxn()
	child.IsChild = true
	child.PID = 5001

	txns := c.Convert([]FeedTransaction{pending, child}, "a", importedAt)
	require.Len(t, txns, 2)

	assert.Equal(t, model.StatePending, txns[0].State)
	assert.Equal(t, model.StateSplit, txns[1].State)
	assert.Equal(t, int64(5001), txns[1].ParentID)
}

func TestParseFeedDateShortForm(t *testing.T) {
	now := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	d, err := parseFeedDate("Aug 15", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), d)

	// A month ahead of today belongs to last year.
	d, err = parseFeedDate("Dec 24", now)
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
}

func TestConvertCreditKeepsSign(t *testing.T) {
	c := testConverter()
	f := feedTxn()
	f.Amount = "$2,500.00"
	f.IsDebit = false

	txns := c.Convert([]FeedTransaction{f}, "a", importedAt)
	require.Len(t, txns, 1)
	assert.True(t, txns[0].Amount.Equal(decimalFrom(t, "2500.00")))
}
