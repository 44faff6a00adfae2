// Package cli implements the flash command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flash"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	store    string
	name     string
	cacheDir string
	ddbTable string
	region   string
	insecure bool
	logLevel string
	jsonLogs bool
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "flash",
		Short: "Flash - LSH index for extreme classification",
		Long: `Flash trains locality-sensitive hashing tables on labeled CSV files
and predicts the most likely labels for new samples.

Snapshots are kept in a store: a local directory, s3://bucket/prefix or
minio://endpoint/bucket/prefix.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.store, "store", "s", "./flash-data", "Snapshot store (directory, s3://bucket/prefix, minio://host/bucket/prefix)")
	pf.StringVar(&g.name, "name", "", "Snapshot name (default: generated on save, CURRENT on load)")
	pf.StringVar(&g.cacheDir, "cache-dir", "", "Local directory mirroring remote snapshots")
	pf.StringVar(&g.ddbTable, "ddb-table", "", "DynamoDB table guarding CURRENT for s3 stores")
	pf.StringVar(&g.region, "region", "", "Region for s3 and minio stores")
	pf.BoolVar(&g.insecure, "insecure", false, "Use plain HTTP for minio stores")
	pf.StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.BoolVar(&g.jsonLogs, "json-logs", false, "Emit logs as JSON")

	root.AddCommand(
		newTrainCommand(g),
		newPredictCommand(g),
		newInspectCommand(g),
	)
	return root
}

func (g *globalFlags) logger() (*flash.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", g.logLevel, err)
	}
	if g.jsonLogs {
		return flash.NewJSONLogger(level), nil
	}
	return flash.NewTextLogger(level), nil
}
