// Package testutil provides testing utilities for Flash.
//
// This package is intended for use in tests and benchmarks only.
// It generates synthetic labeled corpora with a long-tailed label
// distribution, writes them as training files, and measures how well
// predictions recover the true labels.
//
//	rng := testutil.NewRNG(seed)
//	corpus := rng.Corpus(testutil.CorpusOptions{Labels: 100, Records: 5000})
//	path := corpus.WriteFile(t, "train.csv")
//
//	recall := testutil.ComputeRecall([]string{"label-3"}, predicted)
package testutil
