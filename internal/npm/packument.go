package npm

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/fluxbase-eu/pakto/internal/manifest"
)

// Packument is the registry document listing every version of a package.
type Packument struct {
	Name     string                        `json:"name"`
	DistTags map[string]string             `json:"dist-tags"`
	Versions map[string]*manifest.Manifest `json:"versions"`
}

// Resolve picks the version matching rng: a dist-tag, an exact version or
// the highest version satisfying a semver range. An empty range is "latest".
func (p *Packument) Resolve(rng string) (*manifest.Manifest, error) {
	if rng == "" || rng == "*" {
		rng = "latest"
	}
	if v, ok := p.DistTags[rng]; ok {
		rng = v
	}
	if m, ok := p.Versions[rng]; ok {
		return m, nil
	}

	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return nil, &FetchError{Kind: ErrVersionNotFound, Package: p.Name, Version: rng, Err: err}
	}

	versions := make([]*semver.Version, 0, len(p.Versions))
	raw := make(map[*semver.Version]string, len(p.Versions))
	for s := range p.Versions {
		v, err := semver.NewVersion(s)
		if err != nil {
			continue
		}
		versions = append(versions, v)
		raw[v] = s
	}
	sort.Sort(sort.Reverse(semver.Collection(versions)))

	for _, v := range versions {
		if constraint.Check(v) {
			return p.Versions[raw[v]], nil
		}
	}
	return nil, &FetchError{Kind: ErrVersionNotFound, Package: p.Name, Version: rng}
}
