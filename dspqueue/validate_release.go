//go:build release

package dspqueue

// debugValidate is false in a release build: the generator is trusted and
// Validate costs nothing, not even the branch.
const debugValidate = false

// Validate is a no-op in release builds.
func Validate(*Queue, int) {}
