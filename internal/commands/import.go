package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/activity"
	"github.com/mojito-dev/mojito/internal/gitops"
	"github.com/mojito-dev/mojito/internal/importer"
	"github.com/mojito-dev/mojito/internal/model"
	"github.com/mojito-dev/mojito/internal/workspace"
)

func newImportCommand(e *env) *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "import [feed.json]",
		Short: "Merge a transaction feed into the ledger",
		Long: `Merge a transaction feed into the ledger.

With a file argument the feed is read from that file. Without one,
every *.json file under import/ is processed and moved to
import/processed/ afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := e.open()
			if err != nil {
				return err
			}

			l, ok := ws.Config.LoginByName(login)
			if !ok {
				return fmt.Errorf("login %q not configured in %s", login, workspace.ConfigFile)
			}

			if len(args) > 0 {
				return runImport(cmd, e, ws, l.Name, args[0], false)
			}

			files, err := importer.Scan(ws.Root)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import.")
				return nil
			}
			for _, f := range files {
				if err := runImport(cmd, e, ws, l.Name, f.Path, true); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "aggregator login the feed belongs to (required)")
	_ = cmd.MarkFlagRequired("login")

	return cmd
}

func runImport(cmd *cobra.Command, e *env, ws *workspace.Workspace, login, path string, scanned bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening feed: %w", err)
	}
	defer f.Close()

	parser := importer.DefaultRegistry().Get("feed")
	feed, err := parser.Parse(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	now := time.Now()
	conv := importer.NewConverter(ws.Dir, e.log)
	incoming := conv.Convert(feed, login, now)

	start, end := ws.Store.ImportWindow(login, ws.Config.Import.FudgeDays, now)
	stats := ws.Store.Merge(filterWindow(incoming, start, end))

	if err := ws.SaveLedger(); err != nil {
		return err
	}

	if scanned {
		if err := importer.MarkProcessed(ws.Root, filepath.Base(path)); err != nil {
			return err
		}
	}

	details := fmt.Sprintf("merged %d, removed %d from %s", stats.Appended, stats.Removed, filepath.Base(path))
	hash, err := commitAndLog(ws, login, "import", details)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s: %d merged, %d replaced%s\n",
		filepath.Base(path), stats.Appended, stats.Removed, hashSuffix(hash))
	return nil
}

// filterWindow drops incoming rows outside the import window so a
// stale feed cannot purge ledger history it does not cover.
func filterWindow(rows []*model.Transaction, start, end time.Time) []*model.Transaction {
	kept := rows[:0]
	for _, t := range rows {
		if t.Date.Before(start) || t.Date.After(end) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// commitAndLog auto-commits the data directory when configured and
// appends an activity entry either way.
func commitAndLog(ws *workspace.Workspace, login, action, details string) (string, error) {
	var hash string
	if ws.Config.Git.AutoCommit && gitops.IsRepo(ws.Root) {
		var err error
		hash, err = gitops.AutoCommit(ws.Root, action+": "+details,
			ws.Config.Git.AuthorName, ws.Config.Git.AuthorEmail)
		if err != nil {
			return "", fmt.Errorf("auto commit: %w", err)
		}
	}

	err := activity.Append(ws.Root, []activity.Entry{{
		Timestamp:  time.Now(),
		Login:      login,
		Action:     action,
		Details:    details,
		CommitHash: hash,
	}})
	if err != nil {
		return "", fmt.Errorf("activity log: %w", err)
	}
	return hash, nil
}

func hashSuffix(hash string) string {
	if hash == "" {
		return ""
	}
	return " (" + hash + ")"
}
