package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/snapshot"
)

type trainFlags struct {
	target         string
	input          string
	size           string
	configFile     string
	seed           uint64
	workers        int
	labelDelimiter string
	memoryLimit    string
	ioLimit        string
	compression    string
	resume         bool
}

func newTrainCommand(g *globalFlags) *cobra.Command {
	f := &trainFlags{}

	cmd := &cobra.Command{
		Use:   "train <file>...",
		Short: "Train an index on labeled CSV files",
		Long: `Train an index on one or more CSV files and save a snapshot.
Files may be compressed with gzip (.gz), zstd (.zst) or lz4 (.lz4).
With --resume the snapshot named by --name (or CURRENT) is extended.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrain(cmd, g, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.target, "target", "t", "", "Column holding the labels")
	fl.StringVarP(&f.input, "input", "i", "", "Column holding the sample (default: all other columns)")
	fl.StringVar(&f.size, "size", "small", "Dataset size preset (small, medium, large)")
	fl.StringVarP(&f.configFile, "config", "c", "", "YAML config overriding the preset")
	fl.Uint64Var(&f.seed, "seed", 0, "Master seed (0 draws one)")
	fl.IntVarP(&f.workers, "workers", "w", 0, "Training workers (default from preset)")
	fl.StringVar(&f.labelDelimiter, "label-delimiter", "", "Separator of multiple labels (default \";\")")
	fl.StringVar(&f.memoryLimit, "memory-limit", "", "Soft limit on bucket memory, e.g. 2GiB")
	fl.StringVar(&f.ioLimit, "io-limit", "", "Read throughput limit per second, e.g. 50MB")
	fl.StringVar(&f.compression, "compression", "lz4", "Snapshot compression (none, lz4, zstd)")
	fl.BoolVar(&f.resume, "resume", false, "Continue training an existing snapshot")

	return cmd
}

func runTrain(cmd *cobra.Command, g *globalFlags, f *trainFlags, files []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	opts, err := f.options(g)
	if err != nil {
		return err
	}
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}

	var idx *flash.Flash
	if f.resume {
		idx, err = flash.Load(ctx, store, g.name, opts...)
	} else {
		idx, err = f.build(opts)
	}
	if err != nil {
		return err
	}
	defer idx.Close()

	for _, file := range files {
		st, err := idx.TrainOnFile(ctx, file)
		if err != nil && !errors.Is(err, flash.ErrMemoryLimitExceeded) {
			return err
		}
		fmt.Fprintf(out, "%s: %s records, %s skipped, %s empty, %s new labels, %s in %s\n",
			file,
			humanize.Comma(int64(st.Records)),
			humanize.Comma(int64(st.Skipped)),
			humanize.Comma(int64(st.Empty)),
			humanize.Comma(int64(st.Labels)),
			humanize.Bytes(uint64(st.Bytes)),
			st.Duration.Round(time.Millisecond),
		)
		if err != nil {
			fmt.Fprintf(out, "memory limit reached, saving what was trained\n")
			break
		}
	}

	name := g.name
	if f.resume {
		name = ""
	}
	saved, err := idx.Save(ctx, store, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s\n", saved)
	return nil
}

func (f *trainFlags) options(g *globalFlags) ([]flash.Option, error) {
	logger, err := g.logger()
	if err != nil {
		return nil, err
	}
	c, err := snapshot.ParseCompression(f.compression)
	if err != nil {
		return nil, err
	}

	opts := []flash.Option{flash.WithLogger(logger), flash.WithCompression(c)}
	if f.input != "" {
		opts = append(opts, flash.WithInputColumn(f.input))
	}
	if f.workers > 0 {
		opts = append(opts, flash.WithWorkers(f.workers))
	}
	if f.labelDelimiter != "" {
		opts = append(opts, flash.WithLabelDelimiter(f.labelDelimiter))
	}
	if f.memoryLimit != "" {
		n, err := humanize.ParseBytes(f.memoryLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid --memory-limit: %w", err)
		}
		opts = append(opts, flash.WithMemoryLimit(int64(n)))
	}
	if f.ioLimit != "" {
		n, err := humanize.ParseBytes(f.ioLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid --io-limit: %w", err)
		}
		opts = append(opts, flash.WithIOLimit(int64(n)))
	}
	return opts, nil
}

func (f *trainFlags) build(opts []flash.Option) (*flash.Flash, error) {
	if f.seed != 0 {
		opts = append(opts, flash.WithSeed(f.seed))
	}
	if f.configFile == "" {
		var input *string
		if f.input != "" {
			input = &f.input
		}
		return flash.Make(input, f.target, f.size, opts...)
	}

	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		return nil, err
	}
	return flash.New(f.target, cfg.Size, append(opts, flash.WithConfig(cfg))...)
}
