// Package dynamo provides core primitives for the two reference dynamical systems.
//
// The package defines the fundamental types shared by the models, the
// integrators and the Lyapunov engine:
//
//   - [State]: vector representing a point in phase space
//   - [System]: continuous-time flow (dX/dt = f(X, t))
//   - [Map]: discrete-time map (X_{n+1} = f(X_n))
//   - [Integrator]: advances a [System] by one fixed step
//
// # Example
//
//	dyn := physics.NewDrivenPendulum()
//	integ := integrators.NewRK4()
//	x := dynamo.State{0.5, 0}
//	x = integ.Step(dyn, x, 0, 0.01)
//
// # Thread Safety
//
// [State] values are plain slices. Integrators keep scratch buffers and must
// not be shared between goroutines.
package dynamo
