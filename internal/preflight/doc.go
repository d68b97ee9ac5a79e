// Package preflight provides readiness checks to ensure the routing
// core can run successfully before it starts accepting candidates.
//
// The package validates:
//   - Configuration validity (threshold ordering, enum values)
//   - Vector index readiness
//   - Index/embedder dimension agreement
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg, index, embedder.Dimensions())
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
