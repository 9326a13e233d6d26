// Package resilience bounds concurrent access to scarce run resources.
//
// Bulkhead caps how many working views exist at once so a saturated storage
// backend makes workers wait instead of failing or oversubscribing it.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "views", MaxConcurrent: 4, MaxWait: 30 * time.Second})
//	if err := bh.Acquire(ctx); err != nil {
//	    return err
//	}
//	defer bh.Release()
package resilience
