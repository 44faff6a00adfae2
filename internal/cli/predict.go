package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/flash"
)

type predictFlags struct {
	topK     int
	minVotes int
	labels   []string
	scores   bool
	json     bool
}

func newPredictCommand(g *globalFlags) *cobra.Command {
	f := &predictFlags{}

	cmd := &cobra.Command{
		Use:   "predict [sample]...",
		Short: "Predict labels for samples",
		Long: `Load a snapshot and print the top labels for each sample.
Without arguments, samples are read from stdin, one per line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, g, f, args)
		},
	}

	fl := cmd.Flags()
	fl.IntVarP(&f.topK, "top", "k", 5, "Number of labels per sample")
	fl.IntVar(&f.minVotes, "min-votes", 1, "Drop labels fewer tables agree on")
	fl.StringSliceVar(&f.labels, "labels", nil, "Restrict predictions to these labels")
	fl.BoolVar(&f.scores, "scores", false, "Print votes and scores")
	fl.BoolVar(&f.json, "json", false, "Print one JSON object per sample")

	return cmd
}

// predictOutput is one line of --json output.
type predictOutput struct {
	Sample      string             `json:"sample"`
	Predictions []flash.Prediction `json:"predictions"`
}

func runPredict(cmd *cobra.Command, g *globalFlags, f *predictFlags, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger, err := g.logger()
	if err != nil {
		return err
	}
	store, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	idx, err := flash.Load(ctx, store, g.name, flash.WithLogger(logger))
	if err != nil {
		return err
	}
	defer idx.Close()

	enc := json.NewEncoder(out)
	predict := func(sample string) error {
		q := idx.Query(sample).TopK(f.topK).MinVotes(f.minVotes)
		if len(f.labels) > 0 {
			q = q.Labels(f.labels...)
		}
		preds, err := q.Execute(ctx)
		if err != nil {
			return err
		}
		if f.json {
			return enc.Encode(predictOutput{Sample: sample, Predictions: preds})
		}
		_, err = fmt.Fprintf(out, "%s\t%s\n", sample, formatPredictions(preds, f.scores))
		return err
	}

	if len(args) > 0 {
		for _, s := range args {
			if err := predict(s); err != nil {
				return err
			}
		}
		return nil
	}
	return eachLine(cmd.InOrStdin(), predict)
}

func formatPredictions(preds []flash.Prediction, scores bool) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		if scores {
			parts[i] = fmt.Sprintf("%s(%d,%.3f)", p.Label, p.Votes, p.Score)
		} else {
			parts[i] = p.Label
		}
	}
	return strings.Join(parts, ",")
}

func eachLine(r io.Reader, fn func(string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return sc.Err()
}
