// Package workspace opens a mojito data directory and wires the engine
// components that operate on it.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mojito-dev/mojito/internal/config"
	"github.com/mojito-dev/mojito/internal/directory"
	"github.com/mojito-dev/mojito/internal/ledger"
)

// File names inside a data directory.
const (
	ConfigFile     = "mojito.yaml"
	LedgerFile     = "ledger.csv"
	CategoriesFile = "categories.csv"
	TagsFile       = "tags.csv"
)

// Workspace is an open data directory: the config plus the ledger and
// the category/tag directory loaded from it.
type Workspace struct {
	Root   string
	Config *config.Config
	Dir    *directory.Directory
	Store  *ledger.Store

	log zerolog.Logger
}

// Open loads the config, the directory CSVs and the ledger CSV from
// root. A missing ledger or directory file is treated as empty so a
// freshly initialized workspace opens cleanly.
func Open(root string, log zerolog.Logger) (*Workspace, error) {
	cfg, err := config.Load(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cats []directory.Category
	if err := readIfExists(filepath.Join(root, CategoriesFile), func(f *os.File) error {
		cats, err = directory.ReadCategories(f)
		return err
	}); err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}

	var tags []directory.Tag
	if err := readIfExists(filepath.Join(root, TagsFile), func(f *os.File) error {
		tags, err = directory.ReadTags(f)
		return err
	}); err != nil {
		return nil, fmt.Errorf("loading tags: %w", err)
	}

	dir := directory.New(cats, tags, cfg.Tags.Cleared, cfg.Tags.Reconciled, log)

	store := ledger.NewStore(log)
	if err := readIfExists(filepath.Join(root, LedgerFile), func(f *os.File) error {
		rows, err := ledger.ReadTransactions(f)
		if err != nil {
			return err
		}
		store.Load(rows)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	return &Workspace{
		Root:   root,
		Config: cfg,
		Dir:    dir,
		Store:  store,
		log:    log,
	}, nil
}

// Editor returns a ledger editor bound to this workspace's store and
// directory.
func (w *Workspace) Editor() *ledger.Editor {
	return ledger.NewEditor(w.Store, w.Dir, w.log)
}

// SaveLedger writes the store back to ledger.csv.
func (w *Workspace) SaveLedger() error {
	path := filepath.Join(w.Root, LedgerFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", LedgerFile, err)
	}

	if err := ledger.WriteTransactions(f, w.Store.Rows()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", LedgerFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", LedgerFile, err)
	}
	w.log.Info().Str("component", "workspace").Int("rows", w.Store.Len()).Msg("saved ledger")
	return nil
}

func readIfExists(path string, fn func(*os.File) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return fn(f)
}
