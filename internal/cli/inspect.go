package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/blobstore"
	"github.com/hupe1980/flash/blobstore/s3"
)

// historyStore is implemented by stores that keep every commit of CURRENT.
type historyStore interface {
	History(ctx context.Context, limit int) ([]s3.Commit, error)
}

func newInspectCommand(g *globalFlags) *cobra.Command {
	var (
		list    bool
		history int
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show snapshot statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if history > 0 {
				return runHistory(cmd, g, history)
			}
			if list {
				return runList(cmd, g)
			}
			return runInspect(cmd, g)
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List snapshots in the store")
	cmd.Flags().IntVar(&history, "history", 0, "Show the last N commits (requires --ddb-table)")

	return cmd
}

func runInspect(cmd *cobra.Command, g *globalFlags) error {
	ctx := cmd.Context()

	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}

	name := g.name
	if name == "" {
		if name, err = blobstore.ReadCurrent(ctx, store); err != nil {
			return fmt.Errorf("resolve %s: %w", blobstore.CurrentName, err)
		}
	}
	b, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	size := b.Size()
	_ = b.Close()

	idx, err := flash.Load(ctx, store, name)
	if err != nil {
		return err
	}
	defer idx.Close()

	cfg := idx.Config()
	st := idx.Stats()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "snapshot:\t%s\n", name)
	fmt.Fprintf(w, "size:\t%s\n", humanize.IBytes(uint64(size)))
	fmt.Fprintf(w, "preset:\t%s\n", cfg.Size)
	fmt.Fprintf(w, "target column:\t%s\n", cfg.TargetColumn)
	if cfg.InputColumn != "" {
		fmt.Fprintf(w, "input column:\t%s\n", cfg.InputColumn)
	}
	fmt.Fprintf(w, "tables:\t%d x %d hashes, %d-bit codes\n", st.Tables, cfg.HashesPerTable, cfg.RangePow)
	fmt.Fprintf(w, "features:\t2^%d, char %d-grams, word %d-grams\n", cfg.FeatureBits, cfg.CharNGram, cfg.WordNGram)
	fmt.Fprintf(w, "seed:\t%d\n", cfg.Seed)
	fmt.Fprintf(w, "labels:\t%s\n", humanize.Comma(int64(st.Labels)))
	fmt.Fprintf(w, "buckets:\t%s\n", humanize.Comma(int64(st.Buckets)))
	fmt.Fprintf(w, "entries:\t%s\n", humanize.Comma(int64(st.Entries)))
	fmt.Fprintf(w, "memory:\t%s\n", humanize.IBytes(uint64(st.MemoryBytes)))
	return w.Flush()
}

func runList(cmd *cobra.Command, g *globalFlags) error {
	ctx := cmd.Context()

	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	names, err := store.List(ctx, "")
	if err != nil {
		return err
	}
	current, _ := blobstore.ReadCurrent(ctx, store)

	out := cmd.OutOrStdout()
	for _, n := range names {
		if n == blobstore.CurrentName {
			continue
		}
		marker := " "
		if n == current {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, n)
	}
	return nil
}

func runHistory(cmd *cobra.Command, g *globalFlags, limit int) error {
	ctx := cmd.Context()

	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	hs, ok := store.(historyStore)
	if !ok {
		return errors.New("store keeps no commit history; use an s3:// store with --ddb-table and without --cache-dir")
	}
	commits, err := hs.History(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tCOMMITTED\tSNAPSHOT")
	for _, c := range commits {
		when := "-"
		if !c.CommittedAt.IsZero() {
			when = humanize.Time(c.CommittedAt)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", c.Version, when, c.Snapshot)
	}
	return w.Flush()
}
