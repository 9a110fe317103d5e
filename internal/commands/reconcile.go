package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/reconcile"
)

func newReconcileCommand(e *env) *cobra.Command {
	var (
		login   string
		account string
		prev    string
		next    string
		endDate string
		mark    string
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile an account against a statement balance",
		Long: `Reconcile an account against a statement balance.

Without --mark the candidate transactions are listed with their
indexes. Rerun with --mark i,j,... naming the rows that appear on the
statement; when the marked rows sum to the balance change, they are
stamped reconciled and a balance marker row is inserted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.open()
			if err != nil {
				return err
			}

			l, ok := ws.Config.LoginByName(login)
			if !ok {
				return fmt.Errorf("login %q not configured", login)
			}

			prevBal, err := decimal.NewFromString(prev)
			if err != nil {
				return fmt.Errorf("parsing --prev %q: %w", prev, err)
			}
			newBal, err := decimal.NewFromString(next)
			if err != nil {
				return fmt.Errorf("parsing --new %q: %w", next, err)
			}
			end, err := time.Parse("2006-01-02", endDate)
			if err != nil {
				return fmt.Errorf("parsing --end-date %q: %w", endDate, err)
			}

			session := reconcile.NewSession(ws.Store, ws.Editor(), e.log)
			if err := session.Start(account, l.Name, prevBal, newBal, end); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if mark == "" {
				fmt.Fprintf(out, "Target delta: %s\n", session.TargetDelta().StringFixed(2))
				for i, c := range session.Candidates() {
					split := ""
					if c.Split {
						split = " (split)"
					}
					fmt.Fprintf(out, "%3d  %s  %-24s %12s%s\n",
						i, c.Date.Format("2006-01-02"), c.Merchant, c.Amount.StringFixed(2), split)
				}
				fmt.Fprintln(out, "Rerun with --mark i,j,... to reconcile.")
				return nil
			}

			for _, tok := range strings.Split(mark, ",") {
				i, err := strconv.Atoi(strings.TrimSpace(tok))
				if err != nil {
					return fmt.Errorf("parsing --mark entry %q: %w", tok, err)
				}
				if err := session.SetMarked(i, true); err != nil {
					return err
				}
			}

			if !session.IsComplete() {
				return fmt.Errorf("marked rows sum to %s, need %s",
					session.ReconciledSum().StringFixed(2), session.TargetDelta().StringFixed(2))
			}

			marker, err := session.Finish()
			if err != nil {
				return err
			}
			if err := ws.SaveLedger(); err != nil {
				return err
			}

			details := fmt.Sprintf("%s through %s, ending balance %s",
				account, end.Format("2006-01-02"), newBal.StringFixed(2))
			hash, err := commitAndLog(ws, l.Name, "reconcile", details)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Reconciled %s: marker %q inserted%s\n",
				account, marker.Merchant, hashSuffix(hash))
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "aggregator login owning the account (required)")
	cmd.Flags().StringVar(&account, "account", "", "account to reconcile (required)")
	cmd.Flags().StringVar(&prev, "prev", "", "previous statement balance (required)")
	cmd.Flags().StringVar(&next, "new", "", "new statement balance (required)")
	cmd.Flags().StringVar(&endDate, "end-date", "", "statement end date, 2006-01-02 (required)")
	cmd.Flags().StringVar(&mark, "mark", "", "comma-separated candidate indexes that appear on the statement")
	for _, f := range []string{"login", "account", "prev", "new", "end-date"} {
		_ = cmd.MarkFlagRequired(f)
	}

	return cmd
}
