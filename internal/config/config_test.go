package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mojito-dev/mojito/internal/model"
	"github.com/shopspring/decimal"
)

func mustDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRoundTrip(t *testing.T) {
	cfg := Default("alice@example.com")
	cfg.Logins[0].Accounts = map[string]int64{"Checking": 31337}
	cfg.Budget.ExcludedAccounts = []string{"Brokerage"}
	cfg.Goals.IncludedAccounts = []string{"Savings"}
	cfg.Rules = []RuleConfig{
		{Name: "Rent", Kind: "budget", Color: "#ff0", Target: "1500", Terms: []string{"rent"}},
	}

	path := filepath.Join(t.TempDir(), "mojito.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	require.Len(t, got.Logins, 1)
	assert.Equal(t, "alice@example.com", got.Logins[0].Name)
	assert.Equal(t, int64(31337), got.Logins[0].Accounts["Checking"])
	assert.Equal(t, "cleared", got.Tags.Cleared)
	assert.Equal(t, "reconciled", got.Tags.Reconciled)
	assert.Equal(t, 14, got.Import.FudgeDays)
	assert.Equal(t, []string{"Brokerage"}, got.Budget.ExcludedAccounts)
	assert.Equal(t, []string{"Savings"}, got.Goals.IncludedAccounts)
	assert.True(t, got.Git.AutoCommit)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, "Rent", got.Rules[0].Name)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRuleConversion(t *testing.T) {
	rc := RuleConfig{
		Name:         "Vacation fund",
		Kind:         "goal",
		Target:       "3000",
		Terms:        []string{"vacation", "travel"},
		Combine:      "and",
		CarryForward: "250.50",
		EndDate:      "2026-12-31",
	}

	r, err := rc.Rule()
	require.NoError(t, err)
	assert.True(t, r.Target.Equal(mustDec("3000")))
	assert.True(t, r.CarryForward.Equal(mustDec("250.50")))
	assert.Equal(t, model.CombineAnd, r.Combine)
	assert.Equal(t, 2026, r.EndDate.Year())

	kind, err := rc.RuleKind()
	require.NoError(t, err)
	assert.Equal(t, model.KindGoal, kind)
}

func TestRuleConversionErrors(t *testing.T) {
	_, err := RuleConfig{Name: "Bad", Target: "lots"}.Rule()
	require.Error(t, err)

	_, err = RuleConfig{Name: "Bad", Kind: "cashflow"}.RuleKind()
	require.Error(t, err)
}

func TestRulesForFiltersByKind(t *testing.T) {
	cfg := &Config{Rules: []RuleConfig{
		{Name: "Rent", Kind: "budget", Target: "1500", Terms: []string{"rent"}},
		{Name: "Vacation", Kind: "goal", Target: "3000", Terms: []string{"vacation"}},
	}}

	budget, err := cfg.RulesFor(model.KindBudget)
	require.NoError(t, err)
	require.Len(t, budget, 1)
	assert.Equal(t, "Rent", budget[0].Name)
}

func TestLoginByName(t *testing.T) {
	cfg := Default("Alice@Example.com")

	l, ok := cfg.LoginByName("alice@example.com")
	assert.True(t, ok)
	assert.Equal(t, "Alice@Example.com", l.Name)

	_, ok = cfg.LoginByName("bob@example.com")
	assert.False(t, ok)
}
