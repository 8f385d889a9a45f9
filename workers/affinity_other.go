//go:build !linux

package workers

import "runtime"

// pinRealtime locks the calling worker goroutine to its OS thread.
// Real-time scheduling class promotion is Linux-specific (SCHED_FIFO via
// golang.org/x/sys/unix); on other platforms this is a no-op beyond the
// thread pin, matching the teacher's poller_windows.go/poller_darwin.go
// stubs for syscalls with no portable equivalent.
func pinRealtime(index int) {
	runtime.LockOSThread()
}
