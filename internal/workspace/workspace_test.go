package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojito-dev/mojito/internal/config"
	"github.com/mojito-dev/mojito/internal/model"
)

func scaffold(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, config.Save(filepath.Join(dir, ConfigFile), config.Default("alice@example.com")))
	cats := "name,id,standard,parent_id\nGroceries,701,true,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, CategoriesFile), []byte(cats), 0o644))
	tags := "name,id\ncleared,9001\nreconciled,9002\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, TagsFile), []byte(tags), 0o644))
	return dir
}

func TestOpen(t *testing.T) {
	dir := scaffold(t)

	ws, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, dir, ws.Root)
	assert.Equal(t, "alice@example.com", ws.Config.Logins[0].Name)
	_, ok := ws.Dir.LookupCategory("groceries")
	assert.True(t, ok)
	assert.Equal(t, 0, ws.Store.Len(), "missing ledger file opens empty")
}

func TestOpen_MissingConfig(t *testing.T) {
	_, err := Open(t.TempDir(), zerolog.Nop())
	require.Error(t, err)
}

func TestSaveLedgerRoundTrip(t *testing.T) {
	dir := scaffold(t)

	ws, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)

	ws.Store.Insert(&model.Transaction{
		Date:        time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Account:     "Checking",
		MintAccount: "alice@example.com",
		Merchant:    "Costco",
		Amount:      decimal.NewFromInt(-100),
		OrigAmount:  decimal.NewFromInt(-100),
		Category:    "Groceries",
		YearMonth:   202603,
	})
	require.NoError(t, ws.SaveLedger())

	reopened, err := Open(dir, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Store.Len())
	assert.Equal(t, "Costco", reopened.Store.Rows()[0].Merchant)
}
