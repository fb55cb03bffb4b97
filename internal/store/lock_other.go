//go:build !unix

package store

import (
	"context"
	"errors"
	"os"
	"time"
)

const lockPoll = 20 * time.Millisecond

// lockFile creates path exclusively, waiting until it can or ctx ends.
// Removing the file releases the lock.
func lockFile(ctx context.Context, path string) (func() error, error) {
	for {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return func() error {
				return errors.Join(file.Close(), os.Remove(path))
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPoll):
		}
	}
}
