// Package resource bounds what a training run may consume.
//
// A Controller tracks bucket entry memory against a soft limit, hands out
// worker slots and throttles reads of training files:
//
//	rc := resource.NewController(resource.Limits{
//	    MemoryBytes:   1 << 30,
//	    Workers:       8,
//	    IOBytesPerSec: 64 << 20,
//	})
//
//	r := resource.NewRateLimitedReader(ctx, file, rc)
//
// Memory is charged after entries are inserted. The charge is never rolled
// back; ErrMemoryLimitExceeded only signals that training should stop.
//
// A nil Controller is valid and imposes no limits.
package resource
