package dialect

import (
	"fmt"

	"github.com/Masterminds/semver"
)

// Resolve maps a server version reported by a backend to the newest
// registered version of f that is not above it.
//
// Unversioned families ignore serverVersion. An empty serverVersion resolves
// to the oldest registered version, the most conservative choice.
func Resolve(f Family, serverVersion string) (Combo, error) {
	versions := f.info().versions
	if len(versions) == 1 && versions[0] == "" {
		return atomic(f, 0), nil
	}
	if serverVersion == "" {
		return atomic(f, 0), nil
	}

	server, err := semver.NewVersion(serverVersion)
	if err != nil {
		return Empty, fmt.Errorf("parse %s server version %q: %w", f, serverVersion, err)
	}

	best := -1
	for idx, name := range versions {
		v, err := semver.NewVersion(name)
		if err != nil {
			return Empty, fmt.Errorf("registered %s version %q is not semver: %w", f, name, err)
		}
		if !v.GreaterThan(server) {
			best = idx
		}
	}
	if best < 0 {
		return Empty, fmt.Errorf("%s server version %s is older than every supported version (oldest: %s)",
			f, serverVersion, versions[0])
	}
	return atomic(f, best), nil
}
