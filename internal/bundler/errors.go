package bundler

import (
	"errors"
	"fmt"
)

// ErrBundleTooLarge matches every BundleTooLargeError.
var ErrBundleTooLarge = errors.New("bundle too large")

// BundleTooLargeError is returned when the inlined modules exceed the size
// budget and nothing could be externalized.
type BundleTooLargeError struct {
	Size    int64
	MaxSize int64
}

func (e *BundleTooLargeError) Error() string {
	return fmt.Sprintf("bundle size %d bytes exceeds max_size %d bytes", e.Size, e.MaxSize)
}

// Is makes errors.Is(err, ErrBundleTooLarge) work.
func (e *BundleTooLargeError) Is(target error) bool {
	return target == ErrBundleTooLarge
}
