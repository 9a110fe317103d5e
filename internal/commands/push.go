package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/split"
	"github.com/mojito-dev/mojito/internal/syncer"
)

func newPushCommand(e *env) *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Build upload forms for dirty rows (dry run)",
		Long: `Build upload forms for dirty rows (dry run).

Every edited, new, deleted or split row belonging to the login is
turned into the form the aggregator's update endpoint expects and
printed. No network transport is wired, so nothing is applied and
every row keeps its pending status.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.open()
			if err != nil {
				return err
			}

			l, ok := ws.Config.LoginByName(login)
			if !ok {
				return fmt.Errorf("login %q not configured", login)
			}

			editor := ws.Editor()
			splits := split.NewManager(ws.Store, editor, e.log)
			uploader := &syncer.DryRunUploader{}
			sync := syncer.New(ws.Store, editor, splits, ws.Dir, l.Accounts, uploader, e.log)

			stats, err := sync.Push(cmd.Context(), l.Name)
			if err != nil {
				return err
			}
			if err := ws.SaveLedger(); err != nil {
				return err
			}

			details := fmt.Sprintf("%d uploaded, %d failed", stats.Uploaded, stats.Failed)
			if _, err := commitAndLog(ws, l.Name, "push", details); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, form := range uploader.Forms {
				fmt.Fprintf(out, "--- form %d ---\n", i+1)
				keys := make([]string, 0, len(form))
				for k := range form {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "  %s=%s\n", k, form.Get(k))
				}
			}
			fmt.Fprintf(out, "Dry run: %d forms built for %d dirty rows (nothing applied).\n",
				len(uploader.Forms), stats.Uploaded+stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "aggregator login to push (required)")
	_ = cmd.MarkFlagRequired("login")

	return cmd
}
