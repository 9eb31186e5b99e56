package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CurrentVersion is the version of this build, set with -ldflags "-X ...domain.CurrentVersion=x.y.z"
var CurrentVersion = "1.0.0"

// VersionInfo is a numeric major.minor.patch triple
type VersionInfo struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// ParseVersion parses a dotted version string such as "v2.10.0".
// Malformed input yields 0.0.0 so that comparison stays total.
func ParseVersion(s string) VersionInfo {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")

	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return VersionInfo{}
	}

	var nums [3]int
	for i, p := range parts {
		if !isDigits(p) {
			return VersionInfo{}
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return VersionInfo{}
		}
		nums[i] = n
	}
	return VersionInfo{Major: nums[0], Minor: nums[1], Patch: nums[2]}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 comparing major, then minor, then patch
func (v VersionInfo) Compare(other VersionInfo) int {
	switch {
	case v.Major != other.Major:
		return cmpInt(v.Major, other.Major)
	case v.Minor != other.Minor:
		return cmpInt(v.Minor, other.Minor)
	default:
		return cmpInt(v.Patch, other.Patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNewerThan reports whether v is strictly greater than other
func (v VersionInfo) IsNewerThan(other VersionInfo) bool {
	return v.Compare(other) > 0
}

// IsZero reports whether v is 0.0.0
func (v VersionInfo) IsZero() bool {
	return v == VersionInfo{}
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// CompareVersions compares two dotted version strings
func CompareVersions(a, b string) int {
	return ParseVersion(a).Compare(ParseVersion(b))
}
