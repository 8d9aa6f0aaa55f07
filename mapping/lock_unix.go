//go:build unix

package mapping

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func mmap(fd int, size int) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w: %w", ErrFileSystem, err)
	}
	return data, nil
}

func munmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("munmap: %w: %w", ErrFileSystem, err)
	}
	return nil
}

// flockExclusive acquires the process-global advisory lock covering the
// whole mapping. It always blocks; there is no non-blocking variant.
func flockExclusive(fd int) error {
	for {
		err := unix.Flock(fd, unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("flock: %w: %w", ErrFileSystem, err)
		}
		return nil
	}
}

func flockUnlock(fd int) error {
	if err := unix.Flock(fd, unix.LOCK_UN); err != nil {
		return fmt.Errorf("funlock: %w: %w", ErrFileSystem, err)
	}
	return nil
}

// threadID returns the OS thread id of the calling goroutine's current
// underlying thread, used to populate a ring's tid at allocation. Callers
// must be locked to their OS thread (runtime.LockOSThread) for this to be
// meaningful across the lifetime of the ring; ringdbg does not enforce that.
func threadID() int {
	return unix.Gettid()
}
