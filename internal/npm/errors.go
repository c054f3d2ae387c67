package npm

import (
	"errors"
	"fmt"
)

// Fetch failure kinds. A *FetchError matches its kind with errors.Is.
var (
	ErrNotFound        = errors.New("package not found")
	ErrVersionNotFound = errors.New("no matching version")
	ErrNetwork         = errors.New("registry request failed")
	ErrInvalidTarball  = errors.New("invalid tarball")
	ErrInvalidSpec     = errors.New("invalid package spec")
)

// FetchError describes a failure to obtain a package from the registry.
type FetchError struct {
	Kind    error
	Package string
	Version string
	Err     error
}

func (e *FetchError) Error() string {
	name := e.Package
	if e.Version != "" {
		name += "@" + e.Version
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", name, e.Kind)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
