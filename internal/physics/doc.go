// Package physics provides the two reference dynamical systems.
//
//   - [LogisticMap]: the discrete map x -> r*x*(1-x), clamped to (0, 1)
//   - [DrivenPendulum]: damped pendulum with a periodic drive torque
//
// [DrivenPendulum] implements [dynamo.System]; [LogisticMap] implements
// [dynamo.Map]. Both implement [dynamo.Configurable] for runtime parameter
// adjustment.
//
// # Angles
//
// Pendulum angles grow without bound once the pendulum rotates. Use
// [WrapAngle] to bring them back into (-pi, pi] before comparing states:
//
//	x[0] = physics.WrapAngle(x[0])
package physics
