package dspqueue

import "errors"

// ErrSynthCountMismatch is the value Validate panics with when the sum of every
// item's job length does not equal the synth count the queue was built
// against.
var ErrSynthCountMismatch = errors.New("dspqueue: synth count mismatch")

// ErrActivationMismatch is the value Validate panics with when an item's resting
// activation count does not equal the number of distinct predecessors
// that name it as a successor.
var ErrActivationMismatch = errors.New("dspqueue: activation count mismatch")

// ErrCycleDetected is the value Validate panics with when the successor graph is not
// a DAG: a simulated drain starting from the initially-runnable set leaves
// items with nonzero activation.
var ErrCycleDetected = errors.New("dspqueue: cycle detected")
