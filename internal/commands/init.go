package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/config"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/gitops"
	"github.com/mojito-dev/mojito/internal/ledger"
	"github.com/mojito-dev/mojito/internal/workspace"
)

func newInitCommand(e *env) *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new mojito data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := e.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, absDir, login)
		},
	}

	cmd.Flags().StringVar(&login, "login", "", "aggregator login, e.g. an email address (required)")
	_ = cmd.MarkFlagRequired("login")

	return cmd
}

func runInit(cmd *cobra.Command, dir, login string) error {
	dirs := []string{
		"import",
		filepath.Join("import", "processed"),
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(login)
	if err := config.Save(filepath.Join(dir, workspace.ConfigFile), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Header-only data files so the first open succeeds.
	seeds := map[string]string{
		workspace.LedgerFile:     ledger.Header + "\n",
		workspace.CategoriesFile: directory.CategoryHeader + "\n",
		workspace.TagsFile:       directory.TagHeader + "\n",
	}
	for name, content := range seeds {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	gitignore := "logs/\nimport/processed/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if err := gitops.Init(dir); err != nil {
		return fmt.Errorf("git init: %w", err)
	}

	hash, err := gitops.CommitAll(dir, "init: "+login, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized mojito data directory at %s (%s)\n", dir, hash)
	return nil
}
