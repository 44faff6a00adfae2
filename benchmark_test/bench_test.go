package benchmark_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/blobstore"
	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/snapshot"
	"github.com/hupe1980/flash/testutil"
)

func newIndex(b *testing.B, size config.DatasetSize, opts ...flash.Option) *flash.Flash {
	b.Helper()
	opts = append([]flash.Option{flash.WithInputColumn("text"), flash.WithSeed(1)}, opts...)
	idx, err := flash.New("label", size, opts...)
	if err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkTrainOnFile(b *testing.B) {
	corpus := testutil.NewRNG(1).Corpus(testutil.CorpusOptions{Labels: 1000, Records: 10_000})
	path := corpus.WriteFile(b, "train.csv")

	for _, size := range []config.DatasetSize{config.Small, config.Medium, config.Large} {
		b.Run(size.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				b.StopTimer()
				idx := newIndex(b, size)
				b.StartTimer()

				if _, err := idx.TrainOnFile(context.Background(), path); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(b.N*len(corpus.Records))/b.Elapsed().Seconds(), "records/s")
		})
	}
}

func BenchmarkTrain_Workers(b *testing.B) {
	corpus := testutil.NewRNG(2).Corpus(testutil.CorpusOptions{Labels: 500, Records: 5000})

	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				idx := newIndex(b, config.Medium, flash.WithWorkers(workers))
				b.StartTimer()

				if _, err := idx.Train(context.Background(), corpus.Records); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPredict(b *testing.B) {
	ctx := context.Background()

	for _, labels := range []int{100, 10_000} {
		b.Run(fmt.Sprintf("labels=%d", labels), func(b *testing.B) {
			rng := testutil.NewRNG(3)
			corpus := rng.Corpus(testutil.CorpusOptions{Labels: labels, Records: 3 * labels})
			idx := newIndex(b, config.Medium)
			if _, err := idx.Train(ctx, corpus.Records); err != nil {
				b.Fatal(err)
			}

			queries := make([]string, 256)
			for i := range queries {
				queries[i] = corpus.Sample(rng.IntN(labels))
			}
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := idx.PredictSimple(ctx, queries[i%len(queries)], flash.DefaultTopK); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkPredict_Parallel(b *testing.B) {
	ctx := context.Background()
	rng := testutil.NewRNG(4)
	corpus := rng.Corpus(testutil.CorpusOptions{Labels: 1000, Records: 5000})
	idx := newIndex(b, config.Medium)
	if _, err := idx.Train(ctx, corpus.Records); err != nil {
		b.Fatal(err)
	}
	query := corpus.Sample(7)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := idx.PredictSimple(ctx, query, flash.DefaultTopK); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkPredict_Filtered(b *testing.B) {
	ctx := context.Background()
	corpus := testutil.NewRNG(5).Corpus(testutil.CorpusOptions{Labels: 1000, Records: 5000})
	idx := newIndex(b, config.Medium)
	if _, err := idx.Train(ctx, corpus.Records); err != nil {
		b.Fatal(err)
	}

	allow := make([]string, 0, 100)
	for i := 0; i < 1000; i += 10 {
		allow = append(allow, testutil.Label(i))
	}
	query := corpus.Sample(10)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := idx.Query(query).TopK(5).Labels(allow...).Execute(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSnapshot(b *testing.B) {
	ctx := context.Background()
	corpus := testutil.NewRNG(6).Corpus(testutil.CorpusOptions{Labels: 1000, Records: 10_000})

	for _, c := range []snapshot.Compression{snapshot.CompressionNone, snapshot.CompressionLZ4, snapshot.CompressionZSTD} {
		b.Run(c.String(), func(b *testing.B) {
			idx := newIndex(b, config.Small, flash.WithCompression(c))
			if _, err := idx.Train(ctx, corpus.Records); err != nil {
				b.Fatal(err)
			}
			store := blobstore.NewMemoryStore()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := idx.Save(ctx, store, "bench.flsh"); err != nil {
					b.Fatal(err)
				}
				loaded, err := flash.Load(ctx, store, "bench.flsh")
				if err != nil {
					b.Fatal(err)
				}
				_ = loaded.Close()
			}
		})
	}
}
