package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedImport matches every UnresolvedImportError.
	ErrUnresolvedImport = errors.New("unresolved import")
	// ErrRootNotFound is returned when the package has no loadable entry point.
	ErrRootNotFound = errors.New("package entry point not found")
)

// UnresolvedImportError is raised when a specifier resolves to no file and its
// package is not declared as external.
type UnresolvedImportError struct {
	Specifier string
	Importer  string
}

func (e *UnresolvedImportError) Error() string {
	return fmt.Sprintf("cannot resolve %q imported from %s", e.Specifier, e.Importer)
}

// Is makes errors.Is(err, ErrUnresolvedImport) work.
func (e *UnresolvedImportError) Is(target error) bool {
	return target == ErrUnresolvedImport
}
