package dspqueue

// checkInvariants walks a freshly generated queue and reports the first
// structural invariant it finds violated against totalSynths, the tree's
// synth count at generation time: every synth accounted for, every item's
// initial activation count matching its actual in-degree, and the
// successor graph free of cycles (a topological drain that reaches every
// item). It never mutates q.
func checkInvariants(q *Queue, totalSynths int) error {
	if q.SynthCount() != totalSynths {
		return ErrSynthCountMismatch
	}

	predecessorCount := make(map[*Item]int32, len(q.items))
	for _, it := range q.items {
		for _, succ := range it.successors {
			predecessorCount[succ]++
		}
	}
	for _, it := range q.items {
		if it.initialActivation != predecessorCount[it] {
			return ErrActivationMismatch
		}
	}

	activation := make(map[*Item]int32, len(q.items))
	var runnable []*Item
	for _, it := range q.items {
		activation[it] = it.initialActivation
		if it.initialActivation == 0 {
			runnable = append(runnable, it)
		}
	}
	processed := 0
	for len(runnable) > 0 {
		it := runnable[len(runnable)-1]
		runnable = runnable[:len(runnable)-1]
		processed++
		for _, succ := range it.successors {
			activation[succ]--
			if activation[succ] == 0 {
				runnable = append(runnable, succ)
			}
		}
	}
	if processed != len(q.items) {
		return ErrCycleDetected
	}
	return nil
}

// DebugValidationEnabled reports whether Validate performs real checks
// (true) or is a release-build no-op. Build with the release tag to get
// the no-op variant.
func DebugValidationEnabled() bool { return debugValidate }
