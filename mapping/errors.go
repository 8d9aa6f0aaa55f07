package mapping

import "errors"

// Error kinds that apply to file-mapping operations.
var (
	// ErrConfigMismatch is returned by Attach when an existing file's
	// header sizes disagree with the requested Config.
	ErrConfigMismatch = errors.New("ringdbg: header config mismatch")

	// ErrFileSystem wraps open/stat/truncate/mmap/lock failures. It is
	// fatal to the caller of Create/Attach — never retried internally.
	ErrFileSystem = errors.New("ringdbg: filesystem error")
)
