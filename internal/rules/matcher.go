// Package rules evaluates budget, goal and cash-flow rules against the
// ledger. Matching is read-only; callers copy labels and colors onto
// rows themselves if they want them displayed.
package rules

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/mojito-dev/mojito/internal/apperr"
	"github.com/mojito-dev/mojito/internal/model"
)

// Colors used by the in-out view, which has no rules to take colors
// from.
const (
	IncomeColor  = "#b7e1cd"
	ExpenseColor = "#f4c7c3"
)

// In-out bucket labels.
const (
	IncomeLabel  = "Income"
	ExpenseLabel = "Expense"
)

// Options scopes one recompute pass.
type Options struct {
	Kind  model.RuleKind
	Start time.Time // zero means unbounded
	End   time.Time // zero means unbounded

	// Budget and in-out views skip these.
	ExcludedAccounts   []string
	ExcludedCategories []string

	// Goal matching only considers these accounts; it must be
	// non-empty for goals.
	IncludedAccounts []string
}

// Result is the output of one recompute pass, keyed per rule by index
// into the rule slice passed in, and per transaction by RowKey.
type Result struct {
	Actual []decimal.Decimal
	Count  []int

	// Budget-only implicit catch-all bucket.
	OtherActual decimal.Decimal
	OtherCount  int

	// In-out sign buckets, both reported positive.
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	IncomeCount  int
	ExpenseCount int

	Labels map[uuid.UUID][]string
	Colors map[uuid.UUID]string
}

// Percent expresses actual as a percentage of target. A zero target
// yields zero rather than a division error.
func Percent(actual, target decimal.Decimal) decimal.Decimal {
	if target.IsZero() {
		return decimal.Zero
	}
	return actual.Div(target).Mul(decimal.NewFromInt(100))
}

// Matcher evaluates rules against ledger rows.
type Matcher struct {
	log zerolog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(log zerolog.Logger) *Matcher {
	return &Matcher{log: log.With().Str("component", "rules").Logger()}
}

// Recompute evaluates every rule against every ledger row in the
// window. Expenses contribute positively to rule actuals, so budget
// and goal numbers read as "spent so far".
func (m *Matcher) Recompute(rules []model.Rule, rows []*model.Transaction, opt Options) (*Result, error) {
	if opt.Kind == model.KindGoal && len(opt.IncludedAccounts) == 0 {
		return nil, apperr.Validationf("goal matching needs at least one included account")
	}

	res := &Result{
		Actual: make([]decimal.Decimal, len(rules)),
		Count:  make([]int, len(rules)),
		Labels: make(map[uuid.UUID][]string),
		Colors: make(map[uuid.UUID]string),
	}
	for i := range res.Actual {
		res.Actual[i] = decimal.Zero
	}
	if opt.Kind == model.KindGoal {
		// Goals carry last period's shortfall or surplus forward.
		for i, r := range rules {
			res.Actual[i] = r.CarryForward
		}
	}

	excludedAccounts := lowerSet(opt.ExcludedAccounts)
	excludedCategories := lowerSet(opt.ExcludedCategories)
	includedAccounts := lowerSet(opt.IncludedAccounts)

	byTerm := make(map[string][]int)
	for i, r := range rules {
		for _, term := range r.Terms {
			term = strings.ToLower(strings.TrimSpace(term))
			if term != "" {
				byTerm[term] = append(byTerm[term], i)
			}
		}
	}

	for _, t := range rows {
		if !inWindow(t.Date, opt.Start, opt.End) {
			continue
		}
		account := strings.ToLower(t.Account)
		if opt.Kind == model.KindGoal {
			if _, ok := includedAccounts[account]; !ok {
				continue
			}
		} else if _, ok := excludedAccounts[account]; ok {
			continue
		}

		if opt.Kind == model.KindInOut {
			m.bucketBySign(t, res, excludedCategories)
			continue
		}

		m.matchRules(t, rules, byTerm, excludedCategories, opt.Kind, res)
	}
	return res, nil
}

// bucketBySign credits a row to the income or expense bucket of the
// in-out view.
func (m *Matcher) bucketBySign(t *model.Transaction, res *Result, excludedCategories map[string]struct{}) {
	for _, tok := range tokensOf(t) {
		if _, ok := excludedCategories[tok]; ok {
			return
		}
	}
	switch {
	case t.Amount.IsPositive():
		res.IncomeTotal = res.IncomeTotal.Add(t.Amount)
		res.IncomeCount++
		res.Labels[t.RowKey] = append(res.Labels[t.RowKey], IncomeLabel)
		res.Colors[t.RowKey] = IncomeColor
	case t.Amount.IsNegative():
		res.ExpenseTotal = res.ExpenseTotal.Add(t.Amount.Neg())
		res.ExpenseCount++
		res.Labels[t.RowKey] = append(res.Labels[t.RowKey], ExpenseLabel)
		res.Colors[t.RowKey] = ExpenseColor
	}
}

// matchRules runs the token scan for one row. An excluded category
// wipes whatever matched before it and suppresses the catch-all, but a
// rule that explicitly lists the excluded token still matches.
func (m *Matcher) matchRules(t *model.Transaction, rules []model.Rule, byTerm map[string][]int,
	excludedCategories map[string]struct{}, kind model.RuleKind, res *Result) {

	var credited []int
	creditedSet := make(map[int]bool)
	countdown := make(map[int]int)
	ignored := false

	for _, tok := range tokensOf(t) {
		_, excluded := excludedCategories[tok]
		if excluded && !ignored {
			// First excluded token: wipe what matched so far. AND
			// countdown progress survives the wipe.
			ignored = true
			credited = credited[:0]
			creditedSet = make(map[int]bool)
		}

		for _, ri := range byTerm[tok] {
			if creditedSet[ri] {
				continue
			}
			r := rules[ri]
			if r.Combine == model.CombineAnd && len(r.Terms) > 1 {
				left, seen := countdown[ri]
				if !seen {
					left = len(r.Terms)
				}
				left--
				countdown[ri] = left
				if left != 0 {
					continue
				}
			} else if ignored && !excluded {
				// Once a row is ignored, a single-term match only
				// counts on a token the rule explicitly lists among
				// the excluded categories.
				continue
			}
			credited = append(credited, ri)
			creditedSet[ri] = true
		}
	}

	if len(credited) == 0 {
		if !ignored && kind == model.KindBudget {
			res.OtherActual = res.OtherActual.Add(t.Amount.Neg())
			res.OtherCount++
			res.Labels[t.RowKey] = append(res.Labels[t.RowKey], model.EverythingElseName)
		}
		return
	}

	for _, ri := range credited {
		res.Actual[ri] = res.Actual[ri].Add(t.Amount.Neg())
		res.Count[ri]++
		res.Labels[t.RowKey] = append(res.Labels[t.RowKey], rules[ri].Name)
		if _, ok := res.Colors[t.RowKey]; !ok {
			res.Colors[t.RowKey] = rules[ri].HighlightColor
		}
	}
}

func tokensOf(t *model.Transaction) []string {
	toks := make([]string, 0, len(t.Tags)+1)
	if c := strings.ToLower(strings.TrimSpace(t.Category)); c != "" {
		toks = append(toks, c)
	}
	for _, tag := range t.Tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			toks = append(toks, tag)
		}
	}
	return toks
}

func lowerSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func inWindow(d, start, end time.Time) bool {
	if !start.IsZero() && d.Before(start) {
		return false
	}
	if !end.IsZero() && d.After(end) {
		return false
	}
	return true
}
