package model

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

const versionComponents = 4

// Version is a host application version with up to four numeric components.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// NewVersion builds a version from its components. Missing components are zero.
func NewVersion(components ...uint16) Version {
	var parts [versionComponents]uint16
	copy(parts[:], components)

	return Version{Major: parts[0], Minor: parts[1], Build: parts[2], Revision: parts[3]}
}

// ParseVersion parses a dotted version with one to four numeric components.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, errors.Wrap(ErrInvalidVersion, "empty version")
	}

	fields := strings.Split(s, ".")
	if len(fields) > versionComponents {
		return Version{}, errors.Wrapf(ErrInvalidVersion, "%q has more than %d components", s, versionComponents)
	}

	components := make([]uint16, len(fields))

	for i, field := range fields {
		n, err := strconv.ParseUint(field, 10, 16)
		if err != nil {
			return Version{}, errors.Wrapf(ErrInvalidVersion, "%q: component %d", s, i+1)
		}

		components[i] = uint16(n)
	}

	return NewVersion(components...), nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

func (v Version) components() [versionComponents]uint16 {
	return [versionComponents]uint16{v.Major, v.Minor, v.Build, v.Revision}
}

// Compare returns -1, 0 or +1 depending on whether v is lower, equal or greater than o.
func (v Version) Compare(o Version) int {
	a, b := v.components(), o.components()
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}

	return 0
}

// Less reports whether v is lower than o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// String formats the version, trimming trailing zero components down to two.
func (v Version) String() string {
	parts := v.components()

	last := versionComponents - 1
	for last > 1 && parts[last] == 0 {
		last--
	}

	var sb strings.Builder

	for i := 0; i <= last; i++ {
		if i > 0 {
			sb.WriteByte('.')
		}

		sb.WriteString(strconv.FormatUint(uint64(parts[i]), 10))
	}

	return sb.String()
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}

// MaxVersion returns the greatest of floor and versions.
func MaxVersion(floor Version, versions ...Version) Version {
	res := floor
	for _, v := range versions {
		if res.Less(v) {
			res = v
		}
	}

	return res
}
