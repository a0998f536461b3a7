// Package lyapunov estimates the maximal Lyapunov exponent of a system by
// following a base trajectory and a perturbed twin seeded Delta0 apart.
//
// Every renormalization interval the twin's separation d is measured, ln(d/δ0)
// is accumulated and the twin is pulled back to distance δ0 along the current
// separation direction (Benettin's method). The running estimate is the
// accumulated log ratio divided by the elapsed post-transient interval length.
//
// Two flows are supported: the logistic map (one step per iteration, cadence
// in steps) and the driven damped pendulum (RK4 with step Dt, cadence in
// seconds of simulated time).
//
// A Tracker is owned by a single goroutine. Use Estimate for a synchronous
// run, or internal/controller for a cancellable, streaming one.
package lyapunov
