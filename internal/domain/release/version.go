package release

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// versionParts is the number of numeric segments in a version:
// major.minor.build.revision.
const versionParts = 4

// ErrInvalidVersion is returned when a version string cannot be parsed.
var ErrInvalidVersion = errors.New("invalid version")

// Version is a four-part ordered version. Missing parts default to 0.
// The zero value is 0.0.0.0.
type Version struct {
	segments [versionParts]int64
}

// ParseVersion parses strings like "1.2", "1.2.3.4" or "v1.2.3".
// Pre-release and metadata suffixes are rejected.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty string", ErrInvalidVersion)
	}

	parsed, err := goversion.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}

	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q: suffixes are not supported", ErrInvalidVersion, s)
	}

	segments := parsed.Segments64()
	if len(segments) > versionParts {
		return Version{}, fmt.Errorf("%w: %q: more than %d parts", ErrInvalidVersion, s, versionParts)
	}

	var v Version

	copy(v.segments[:], segments)

	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
// Intended for constants in tests and defaults.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// NewVersion builds a version from its numeric parts.
func NewVersion(major, minor, build, revision int64) Version {
	return Version{segments: [versionParts]int64{major, minor, build, revision}}
}

// Major returns the first segment.
func (v Version) Major() int64 { return v.segments[0] }

// Minor returns the second segment.
func (v Version) Minor() int64 { return v.segments[1] }

// Build returns the third segment.
func (v Version) Build() int64 { return v.segments[2] }

// Revision returns the fourth segment.
func (v Version) Revision() int64 { return v.segments[3] }

// String renders all four parts, so "1.2" becomes "1.2.0.0".
func (v Version) String() string {
	parts := make([]string, 0, versionParts)
	for _, segment := range v.segments {
		parts = append(parts, strconv.FormatInt(segment, 10))
	}

	return strings.Join(parts, ".")
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than other.
// Segments are compared left to right.
func (v Version) Compare(other Version) int {
	for i := range v.segments {
		switch {
		case v.segments[i] < other.segments[i]:
			return -1
		case v.segments[i] > other.segments[i]:
			return 1
		}
	}

	return 0
}

// GreaterThan reports whether v is strictly newer than other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

// Equal reports whether both versions have the same segments.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// IsZero reports whether v is 0.0.0.0.
func (v Version) IsZero() bool {
	return v == Version{}
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}

	*v = parsed

	return nil
}
