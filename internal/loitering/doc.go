// Package loitering flags identities that have stayed in view longer than
// a time limit while still moving around.
//
// An identity is loitering when both hold:
//
//   - it was first observed more than MaxTime ago, and
//   - the path traced by its box's top-left corner across the retained
//     history is longer than MinMovement pixels.
//
// The time test runs first and short-circuits. Someone standing still for a
// long time is therefore not loitering, nor is someone walking through
// quickly.
//
// Key types: Evaluator, Session.
package loitering
