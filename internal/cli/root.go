// Package cli implements learnctl, the operator tool for course content and
// learner progress.
package cli

import (
	"os"

	"github.com/ashureev/learnpath/internal/content"
	"github.com/ashureev/learnpath/internal/progress"
	"github.com/ashureev/learnpath/internal/store"
	"github.com/spf13/cobra"
)

type options struct {
	dbPath      string
	contentPath string
}

// Execute runs the root command.
func Execute() error {
	return NewRoot().Execute()
}

// NewRoot builds the learnctl command tree.
func NewRoot() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "learnctl",
		Short:         "Inspect course content and learner progress",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("DB_PATH", "./data/learn.db"), "SQLite database path")
	root.PersistentFlags().StringVar(&opts.contentPath, "content", os.Getenv("CONTENT_PATH"), "Course content file (JSON or YAML); empty uses the built-in catalog")

	root.AddCommand(
		validateCmd(),
		sectionsCmd(opts),
		nextCmd(opts),
		resetCmd(opts),
		staleCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *options) catalog() (*content.Catalog, error) {
	if o.contentPath == "" {
		return content.Default()
	}
	return content.Load(o.contentPath)
}

// open loads the catalog and the database. The caller must close the store.
func (o *options) open() (*progress.Tracker, *store.SQLiteStore, error) {
	catalog, err := o.catalog()
	if err != nil {
		return nil, nil, err
	}
	repo, err := store.NewSQLite(o.dbPath)
	if err != nil {
		return nil, nil, err
	}
	return progress.NewTracker(catalog, repo, nil, nil), repo, nil
}
