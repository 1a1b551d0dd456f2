// Package pipeline drives a behaviour session from a stream of detector
// output.
//
// A Replay reads JSON lines, assembles each into a detection batch, asks
// the Runner whether the frame is due for evaluation, and writes the line
// back annotated with the session's result. Frames the gate skips reuse
// the last result without touching session state.
package pipeline
