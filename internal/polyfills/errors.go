package polyfills

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedAPI matches every UnsupportedAPIError.
	ErrUnsupportedAPI = errors.New("unsupported api")
	// ErrUnknownPolyfill is returned for a polyfill name with no asset.
	ErrUnknownPolyfill = errors.New("unknown polyfill")
)

// UnsupportedAPIError is raised when a built-in that is required at load
// time has no polyfill.
type UnsupportedAPIError struct {
	API     string
	Modules []string
}

func (e *UnsupportedAPIError) Error() string {
	return fmt.Sprintf("%s is required at load time by %s and has no browser polyfill", e.API, strings.Join(e.Modules, ", "))
}

// Is makes errors.Is(err, ErrUnsupportedAPI) work.
func (e *UnsupportedAPIError) Is(target error) bool {
	return target == ErrUnsupportedAPI
}
