package scraper

import (
	"context"
	"time"
)

// Clock abstracts time for the polling loops.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

// RealClock returns the wall clock.
func RealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollUntil evaluates pred every interval until it reports true or timeout
// elapses. A predicate error ends polling and is returned. The predicate is
// always evaluated at least once.
func PollUntil(ctx context.Context, clock Clock, interval, timeout time.Duration, pred func(context.Context) (bool, error)) (bool, error) {
	deadline := clock.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if !clock.Now().Before(deadline) {
			return false, nil
		}
		if err := clock.Sleep(ctx, interval); err != nil {
			return false, err
		}
	}
}
