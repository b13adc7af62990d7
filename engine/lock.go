package engine

import "github.com/gofrs/flock"

// AcquireTickLock takes the deployment-wide advisory file lock that
// elects which worker process runs the tick scheduler. The attempt is
// non-blocking: a process that loses simply never starts its own loop.
// The returned lock must stay referenced for the life of the process,
// releasing it would let another worker start a second scheduler.
func AcquireTickLock(path string) (*flock.Flock, bool, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, false, err
	}
	return lock, locked, nil
}
