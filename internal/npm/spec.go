package npm

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var namePattern = regexp.MustCompile(`^(@[a-z0-9][a-z0-9._~-]*/)?[a-z0-9._~-][a-z0-9._~-]*$`)

// Spec is a parsed "name@range" argument.
type Spec struct {
	Name string
	// Range is a version, a semver range or a dist-tag. Empty means latest.
	Range string
}

func (s Spec) String() string {
	if s.Range == "" {
		return s.Name
	}
	return s.Name + "@" + s.Range
}

// ParseSpec parses "lodash", "lodash@4.17.21", "@babel/core@^7" and similar.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	rest := s
	prefix := ""
	if strings.HasPrefix(rest, "@") {
		prefix, rest = "@", rest[1:]
	}
	name, rng, _ := strings.Cut(rest, "@")
	name = prefix + name
	if prefix != "" && !strings.Contains(name, "/") {
		return Spec{}, fmt.Errorf("%w: %q has a scope but no name", ErrInvalidSpec, s)
	}
	if len(name) > 214 || !namePattern.MatchString(strings.ToLower(name)) {
		return Spec{}, fmt.Errorf("%w: %q", ErrInvalidSpec, s)
	}
	return Spec{Name: name, Range: strings.TrimSpace(rng)}, nil
}

// escapeName encodes a package name as one registry path segment.
func escapeName(name string) string {
	return strings.Replace(url.PathEscape(name), "%40", "@", 1)
}
