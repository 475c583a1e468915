//go:build unix

// Advisory file locking for the graph file, guarding against a second
// process opening the same file read-write concurrently. Opt-in via
// options.WithAdvisoryLock, since a single-process embedded store has
// no other need for it.
package filesys

import "golang.org/x/sys/unix"

// Lock takes an exclusive, non-blocking advisory lock (flock) on f's
// file descriptor. It returns an error immediately if another process
// already holds the lock rather than blocking.
func Lock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

// Unlock releases a lock previously taken with Lock.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
