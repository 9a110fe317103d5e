package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/model"
	"github.com/mojito-dev/mojito/internal/rules"
)

func newRecalcCommand(e *env) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:       "recalc {budget|goal|inout}",
		Short:     "Recompute rule matches for one view",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"budget", "goal", "inout"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.open()
			if err != nil {
				return err
			}

			start, end, err := monthWindow(month, time.Now())
			if err != nil {
				return err
			}

			matcher := rules.NewMatcher(e.log)
			out := cmd.OutOrStdout()

			switch args[0] {
			case "budget":
				ruleSet, err := ws.Config.RulesFor(model.KindBudget)
				if err != nil {
					return err
				}
				res, err := matcher.Recompute(ruleSet, ws.Store.Rows(), rules.Options{
					Kind:               model.KindBudget,
					Start:              start,
					End:                end,
					ExcludedAccounts:   ws.Config.Budget.ExcludedAccounts,
					ExcludedCategories: ws.Config.Budget.ExcludedCategories,
				})
				if err != nil {
					return err
				}
				for i, r := range ruleSet {
					printRule(out, r.Name, res.Actual[i], r.Target, res.Count[i], budgetProgress)
				}
				printRule(out, model.EverythingElseName, res.OtherActual, decimal.Zero, res.OtherCount, budgetProgress)

			case "goal":
				ruleSet, err := ws.Config.RulesFor(model.KindGoal)
				if err != nil {
					return err
				}
				res, err := matcher.Recompute(ruleSet, ws.Store.Rows(), rules.Options{
					Kind:             model.KindGoal,
					Start:            start,
					End:              end,
					IncludedAccounts: ws.Config.Goals.IncludedAccounts,
				})
				if err != nil {
					return err
				}
				for i, r := range ruleSet {
					printRule(out, r.Name, res.Actual[i], r.Target, res.Count[i], goalProgress)
				}

			case "inout":
				res, err := matcher.Recompute(nil, ws.Store.Rows(), rules.Options{
					Kind:               model.KindInOut,
					Start:              start,
					End:                end,
					ExcludedAccounts:   ws.Config.InOut.ExcludedAccounts,
					ExcludedCategories: ws.Config.InOut.ExcludedCategories,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-20s %12s  (%d transactions)\n",
					rules.IncomeLabel, res.IncomeTotal.StringFixed(2), res.IncomeCount)
				fmt.Fprintf(out, "%-20s %12s  (%d transactions)\n",
					rules.ExpenseLabel, res.ExpenseTotal.StringFixed(2), res.ExpenseCount)

			default:
				return fmt.Errorf("unknown view %q", args[0])
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to recompute, e.g. 2026-08 (default: current)")

	return cmd
}

// monthWindow resolves a YYYY-MM flag to the first and last day of
// that month, defaulting to the current one.
func monthWindow(month string, now time.Time) (start, end time.Time, err error) {
	base := now
	if month != "" {
		base, err = time.Parse("2006-01", month)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parsing month %q: %w", month, err)
		}
	}
	start = time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end, nil
}

// budgetProgress buckets a percentage into 0..10 tenths for display.
func budgetProgress(percent decimal.Decimal) int {
	return progressBucket(percent, 10, 10)
}

// goalProgress buckets a percentage into 0..20 twentieths for display.
func goalProgress(percent decimal.Decimal) int {
	return progressBucket(percent, 5, 20)
}

func progressBucket(percent decimal.Decimal, step int64, max int) int {
	if percent.IsNegative() {
		return 0
	}
	b := int(percent.Div(decimal.NewFromInt(step)).IntPart())
	if b > max {
		return max
	}
	return b
}

func printRule(out io.Writer, name string,
	actual, target decimal.Decimal, count int, progress func(decimal.Decimal) int) {
	pct := rules.Percent(actual, target)
	fmt.Fprintf(out, "%-20s %12s / %-12s %6s%%  [%d]  (%d transactions)\n",
		name, actual.StringFixed(2), target.StringFixed(2), pct.Round(1).String(), progress(pct), count)
}
