package housekeeping

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/archmap/archmap/internal/db/gen"
)

const unlockTimeout = 5 * time.Second

// RefreshLockKey is the advisory lock held while a refresh pass runs.
var RefreshLockKey = LockKey("housekeeping", "refresh")

// LockKey hashes a scope into a postgres advisory lock key.
func LockKey(kind, name string) int64 {
	kind = strings.ToLower(strings.TrimSpace(kind))
	name = strings.ToLower(strings.TrimSpace(name))

	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// Locker takes a session-scoped lock. release must be called when ok.
type Locker interface {
	TryLock(ctx context.Context, key int64) (release func(), ok bool, err error)
}

// PGLocker uses pg_try_advisory_lock on a dedicated pool connection.
type PGLocker struct {
	Pool *pgxpool.Pool
}

func (l PGLocker) TryLock(ctx context.Context, key int64) (func(), bool, error) {
	if l.Pool == nil {
		return nil, false, errors.New("lock pool is nil")
	}
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	q := gen.New(conn)
	ok, err := q.TryAcquireAdvisoryLock(ctx, key)
	if err != nil || !ok {
		conn.Release()
		return nil, false, err
	}
	return func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		_ = q.ReleaseAdvisoryLock(unlockCtx, key)
		conn.Release()
	}, true, nil
}

type tryLockRunner struct {
	locker Locker
	key    int64
	inner  Runner
}

// NewTryLockRunner runs inner only if the lock at key is free, and returns
// ErrAlreadyRunning otherwise.
func NewTryLockRunner(locker Locker, key int64, inner Runner) Runner {
	return &tryLockRunner{locker: locker, key: key, inner: inner}
}

func (r *tryLockRunner) RunOnce(ctx context.Context) error {
	if r == nil || r.locker == nil || r.inner == nil {
		return errors.New("lock runner is not configured")
	}
	release, ok, err := r.locker.TryLock(ctx, r.key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer release()
	return r.inner.RunOnce(ctx)
}
