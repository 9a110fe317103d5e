package commands_test

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojito-dev/mojito/internal/commands"
	"github.com/mojito-dev/mojito/internal/config"
	"github.com/mojito-dev/mojito/internal/ledger"
	"github.com/mojito-dev/mojito/internal/model"
	"github.com/mojito-dev/mojito/internal/workspace"
)

const testLogin = "alice@example.com"

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// setupWorkspace initializes a data directory and seeds the category
// and tag tables.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runCommand(t, "init", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	cats := "name,id,standard,parent_id\nGroceries,701,true,\nFinancial,702,true,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, workspace.CategoriesFile), []byte(cats), 0o644))
	tags := "name,id\ncleared,9001\nreconciled,9002\nvacation,9003\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, workspace.TagsFile), []byte(tags), 0o644))

	return dir
}

// writeFeed drops a one-row feed file dated today so it lands inside
// the import window.
func writeFeed(t *testing.T, path string) {
	t.Helper()
	feed := fmt.Sprintf(`{
  "set": [
    {"id": "transactions", "data": [
      {"id": 9001, "date": %q, "account": "Checking",
       "merchant": "Whole Foods", "omerchant": "WHOLEFDS #1234",
       "amount": "$1,234.56", "isDebit": true,
       "category": "Groceries", "categoryId": 701,
       "labels": [{"id": 9003, "name": "vacation"}]}
    ]}
  ]
}`, time.Now().Format("1/2/2006"))
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))
}

func readLedger(t *testing.T, dir string) []*model.Transaction {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, workspace.LedgerFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := ledger.ReadTransactions(f)
	require.NoError(t, err)
	return rows
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	out, err := runCommand(t, "init", dir, "--login", testLogin)
	require.NoError(t, err)
	assert.Contains(t, out, "Initialized mojito data directory")

	for _, name := range []string{
		workspace.ConfigFile, workspace.LedgerFile,
		workspace.CategoriesFile, workspace.TagsFile, ".gitignore",
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "file %s should exist", name)
	}
	for _, d := range []string{"import", filepath.Join("import", "processed"), "logs", ".git"} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}

	cfg, err := config.Load(filepath.Join(dir, workspace.ConfigFile))
	require.NoError(t, err)
	require.Len(t, cfg.Logins, 1)
	assert.Equal(t, testLogin, cfg.Logins[0].Name)
}

func TestInit_RequiresLogin(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "init", dir)
	require.Error(t, err)
}

func TestImport_MergesFeed(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)

	out, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "1 merged")

	rows := readLedger(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, "Whole Foods", rows[0].Merchant)
	assert.True(t, rows[0].Amount.Equal(decimalFromString(t, "-1234.56")))
	assert.Equal(t, "Groceries", rows[0].Category)
	assert.Equal(t, []string{"vacation"}, rows[0].Tags)
	assert.Equal(t, testLogin, rows[0].MintAccount)
}

func TestImport_ScansImportDir(t *testing.T) {
	dir := setupWorkspace(t)
	writeFeed(t, filepath.Join(dir, "import", "download.json"))

	_, err := runCommand(t, "import", "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	assert.Len(t, readLedger(t, dir), 1)
	_, err = os.Stat(filepath.Join(dir, "import", "processed", "download.json"))
	require.NoError(t, err, "feed file should move to processed")
}

func TestImport_UnknownLogin(t *testing.T) {
	dir := setupWorkspace(t)
	_, err := runCommand(t, "import", "--dir", dir, "--login", "bob@example.com", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestRecalc_Budget(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)
	_, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, workspace.ConfigFile)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	cfg.Rules = []config.RuleConfig{
		{Name: "Food", Kind: "budget", Target: "500", Terms: []string{"groceries"}},
	}
	require.NoError(t, config.Save(cfgPath, cfg))

	out, err := runCommand(t, "recalc", "budget", "--dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "1234.56")
	assert.Contains(t, out, model.EverythingElseName)
}

func TestRecalc_InOut(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)
	_, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	out, err := runCommand(t, "recalc", "inout", "--dir", dir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Expense")
	assert.Contains(t, out, "1234.56")
}

func TestReconcile_ListThenFinish(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)
	_, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	endDate := time.Now().Format("2006-01-02")
	common := []string{"reconcile", "--dir", dir, "--log-level", "error",
		"--login", testLogin, "--account", "Checking",
		"--prev", "0", "--new", "-1234.56", "--end-date", endDate}

	out, err := runCommand(t, common...)
	require.NoError(t, err)
	assert.Contains(t, out, "Whole Foods")
	assert.Contains(t, out, "Target delta: -1234.56")

	out, err = runCommand(t, append(common, "--mark", "0")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Reconciled Checking")

	rows := readLedger(t, dir)
	require.Len(t, rows, 2, "marker row should be inserted")
	var marker, stamped *model.Transaction
	for _, r := range rows {
		if r.Merchant == "Whole Foods" {
			stamped = r
		} else {
			marker = r
		}
	}
	require.NotNil(t, marker)
	require.NotNil(t, stamped)
	assert.Equal(t, model.CRReconciled, stamped.ClearRecon)
	assert.Contains(t, marker.Merchant, "** Reconciled: Checking **")
}

func TestReconcile_IncompleteMark(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)
	_, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	_, err = runCommand(t, "reconcile", "--dir", dir, "--log-level", "error",
		"--login", testLogin, "--account", "Checking",
		"--prev", "0", "--new", "-999.99",
		"--end-date", time.Now().Format("2006-01-02"), "--mark", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "need -999.99")
}

func TestPush_DryRunBuildsForms(t *testing.T) {
	dir := setupWorkspace(t)
	feedPath := filepath.Join(dir, "feed.json")
	writeFeed(t, feedPath)
	_, err := runCommand(t, "import", feedPath, "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)

	// Dirty one row so the push has something to build.
	ws, err := workspace.Open(dir, zerolog.Nop())
	require.NoError(t, err)
	editor := ws.Editor()
	require.NoError(t, editor.Mark(ws.Store.Rows()[0], model.EditEdit))
	require.NoError(t, ws.SaveLedger())

	out, err := runCommand(t, "push", "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "task=txnEdit")
	assert.Contains(t, out, "txnId=9001:0")
	assert.Contains(t, out, "Dry run: 1 forms")

	// Nothing applied, so the row stays dirty.
	rows := readLedger(t, dir)
	require.Len(t, rows, 1)
	assert.Equal(t, model.EditEdit, rows[0].EditStatus)
}

func TestPush_NothingDirty(t *testing.T) {
	dir := setupWorkspace(t)
	out, err := runCommand(t, "push", "--dir", dir, "--login", testLogin, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "0 forms")
}
