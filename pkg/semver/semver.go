package semver

import (
	"fmt"
	"regexp"
	"strconv"
)

// Semver is a major.minor.patch version
type Semver struct {
	Major uint32
	Minor uint32
	Patch uint32
}

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-[0-9A-Za-z.-]+)?(?:\+[0-9A-Za-z.-]+)?$`)

// NewSemver creates a new Semver
func NewSemver(major, minor, patch uint32) Semver {
	return Semver{Major: major, Minor: minor, Patch: patch}
}

// Parse parses a semantic version string, ignoring prerelease and build tags
func Parse(version string) (Semver, error) {
	matches := semverRegex.FindStringSubmatch(version)
	if matches == nil {
		return Semver{}, fmt.Errorf("invalid semantic version: %s", version)
	}

	var parts [3]uint32
	for i := range parts {
		n, err := strconv.ParseUint(matches[i+1], 10, 32)
		if err != nil {
			return Semver{}, fmt.Errorf("invalid semantic version: %s", version)
		}
		parts[i] = uint32(n)
	}
	return NewSemver(parts[0], parts[1], parts[2]), nil
}

// String returns the string representation
func (s Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
}

// Compare returns -1 if s < other, 0 if equal, 1 if s > other
func (s Semver) Compare(other Semver) int {
	switch {
	case s.Major != other.Major:
		return cmp(s.Major, other.Major)
	case s.Minor != other.Minor:
		return cmp(s.Minor, other.Minor)
	default:
		return cmp(s.Patch, other.Patch)
	}
}

func cmp(a, b uint32) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// AnyCompatible checks if nodeVer is compatible with any of the given versions
// Compatibility is based on major version only (semver rules)
func AnyCompatible(compatible []Semver, nodeVer Semver) bool {
	for _, v := range compatible {
		if v.Major == nodeVer.Major {
			return true
		}
	}
	return false
}
