package estatement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultPollInterval is how often [WaitForDownload] inspects the staging
// directory.
const DefaultPollInterval = 500 * time.Millisecond

// inProgressSuffix marks a file Chrome is still writing.
const inProgressSuffix = ".crdownload"

// WaitFor evaluates cond immediately and then once per interval until it
// reports true, cond returns an error, ctx is done, or timeout elapses.
// On timeout it returns [ErrWaitTimeout]. A zero or negative timeout waits
// until ctx is done.
func WaitFor(ctx context.Context, interval, timeout time.Duration, cond func() (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrWaitTimeout
			}
			return context.Cause(ctx)
		case <-ticker.C:
		}
	}
}

// WaitForDownload polls dir until it holds a file that is not marked as
// in progress and returns that file's name. An empty or missing directory
// counts as not ready yet.
func WaitForDownload(ctx context.Context, dir string, interval, timeout time.Duration) (string, error) {
	var name string
	err := WaitFor(ctx, interval, timeout, func() (bool, error) {
		name = completedFile(dir)
		return name != "", nil
	})
	if errors.Is(err, ErrWaitTimeout) {
		return "", &Error{
			Kind:    KindDownloadTimeout,
			Message: fmt.Sprintf("estatement: timeout waiting to download after %s", timeout),
			Err:     err,
		}
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// completedFile returns the first regular file in dir, by name, that is not
// an in-progress download.
func completedFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasSuffix(e.Name(), inProgressSuffix) {
			return e.Name()
		}
	}
	return ""
}
