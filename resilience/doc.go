// Package resilience holds the two failure-isolation patterns the service
// uses: a Bulkhead that optionally bounds concurrent extractions, and a
// CircuitBreaker that fails fast when a remote inference backend is down.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "extraction", MaxConcurrent: 4})
//	release, err := bh.Acquire(ctx)
//	if err != nil {
//	    return err
//	}
//	defer release()
package resilience
