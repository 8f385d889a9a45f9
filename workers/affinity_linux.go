//go:build linux

package workers

import (
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/novasynth/novaserver/rtlog"
)

var warnOnce sync.Once

// pinRealtime locks the calling worker goroutine to its OS thread and
// attempts to raise its scheduling class to SCHED_FIFO, mirroring the
// teacher's platform-specific poller split (poller_linux.go vs
// poller_darwin.go) for gating a syscall-level concern behind a build
// tag. Raising scheduling class typically requires CAP_SYS_NICE; failure
// is expected in unprivileged environments (containers, CI, developer
// laptops) and is logged once, not per worker, since every worker would
// otherwise fail identically.
func pinRealtime(index int) {
	runtime.LockOSThread()

	const priority = 10 // mid-range SCHED_FIFO priority, leaves room above/below
	err := unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: priority})
	if err != nil {
		warnOnce.Do(func() {
			rtlog.Warnf("workers", "SCHED_FIFO unavailable, falling back to default scheduling: %v", err)
		})
	}
}
