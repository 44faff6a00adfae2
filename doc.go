// Package flash provides an embedded LSH index for extreme classification.
//
// Flash routes similar samples into shared buckets of many independent
// MinHash tables. At query time only the labels found in the sample's buckets
// are scored, by the number of tables that agree, so lookups stay sub-linear
// in the size of the label space.
//
// # Quick Start
//
//	idx, _ := flash.Make(nil, "label", "small")
//	stats, _ := idx.TrainOnFile(ctx, "train.csv")
//	labels, _ := idx.PredictSimple(ctx, "cat leash", 3)
//
// The fluent builder exposes the same presets:
//
//	idx, _ := flash.Medium("category").
//	    InputColumn("title").
//	    Seed(42).
//	    Workers(4).
//	    Build()
//
// # Training
//
// TrainOnFile streams a delimited file with a header row. The target column
// may hold several labels separated by ";". Training is additive: calling it
// again increases bucket counts and mints new labels, it never resets state.
// Rows that cannot be parsed are skipped and counted in TrainStats.
//
// # Queries
//
//	preds, _ := idx.Query("wireless headphones").
//	    TopK(5).
//	    MinVotes(2).
//	    Execute(ctx)
//
// Results are ordered by votes, then by how often the label was trained, then
// by first appearance. Queries never fail for empty samples or untrained
// indexes; they return an empty result.
//
// # Concurrency
//
// Queries may run concurrently with each other and with training. A query
// that overlaps training may see some tables updated before others.
//
// # Snapshots
//
//	store := blobstore.NewLocalStore("./snapshots")
//	name, _ := idx.Save(ctx, store, "")
//	idx2, _ := flash.Load(ctx, store, "") // follows CURRENT
package flash
