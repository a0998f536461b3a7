// Package analysis provides parameter studies built on the Lyapunov engine.
//
//   - [Sweep]: maximal exponent over a range of logistic parameters, in parallel
//   - [BifurcationDiagram]: attractor values of a configurable map per parameter
//   - [SweepToASCII], [BifurcationToASCII]: terminal renderings of both
//
// # Chaos Detection
//
// A positive exponent marks the chaotic windows of the logistic map:
//
//	pts, err := analysis.Sweep(ctx, lyapunov.DefaultLogisticParams(), analysis.Range(2.8, 4, 120), 0)
//	for _, pt := range pts {
//	    if pt.Lambda > 0 {
//	        // chaotic at pt.R
//	    }
//	}
package analysis
