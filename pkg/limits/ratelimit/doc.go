// Package ratelimit paces calls to external reasoning providers.
//
// A TokenBucket allows bursts up to its capacity while holding the average
// rate to the refill rate. Callers either poll with Take or block with Wait:
//
//	bucket := ratelimit.NewTokenBucket(5, 2) // burst 5, 2 calls/sec
//	if err := bucket.Wait(ctx); err != nil {
//	    return err // ctx ended first
//	}
package ratelimit
