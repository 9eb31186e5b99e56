package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input    string
		expected VersionInfo
	}{
		{"2.10.0", VersionInfo{2, 10, 0}},
		{"v2.10.0", VersionInfo{2, 10, 0}},
		{"V1.2.3", VersionInfo{1, 2, 3}},
		{" 1.0.0\n", VersionInfo{1, 0, 0}},
		{"3", VersionInfo{3, 0, 0}},
		{"3.1", VersionInfo{3, 1, 0}},
		{"not-a-version", VersionInfo{}},
		{"", VersionInfo{}},
		{"1.2.3.4", VersionInfo{}},
		{"1.-2.3", VersionInfo{}},
		{"1.+2.3", VersionInfo{}},
		{"1..3", VersionInfo{}},
		{"1.2.3-beta", VersionInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseVersion(tt.input))
		})
	}
}

func TestVersionInfo_CompareNumeric(t *testing.T) {
	assert.Equal(t, 1, ParseVersion("2.10.0").Compare(ParseVersion("2.9.9")))
	assert.True(t, ParseVersion("2.10.0").IsNewerThan(ParseVersion("2.9.9")))
	assert.Equal(t, -1, ParseVersion("1.9.9").Compare(ParseVersion("2.0.0")))
	assert.Equal(t, 0, ParseVersion("v1.2.3").Compare(ParseVersion("1.2.3")))
	assert.Equal(t, 1, CompareVersions("1.2.4", "1.2.3"))
}

func TestVersionInfo_MalformedNeverNewer(t *testing.T) {
	bad := ParseVersion("not-a-version")

	assert.True(t, bad.IsZero())
	for _, current := range []string{"0.0.1", "1.0.0", "2.9.0"} {
		assert.False(t, bad.IsNewerThan(ParseVersion(current)), current)
	}
}

func TestVersionInfo_TotalOrder(t *testing.T) {
	versions := []VersionInfo{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {1, 0, 0}, {1, 0, 9}, {1, 9, 0}, {1, 10, 0}, {2, 0, 0},
	}

	for _, a := range versions {
		for _, b := range versions {
			ab, ba := a.Compare(b), b.Compare(a)
			assert.Equal(t, -ab, ba, "%s vs %s", a, b)
			assert.Equal(t, a == b, ab == 0, "%s vs %s", a, b)
			for _, c := range versions {
				if ab < 0 && b.Compare(c) < 0 {
					assert.Equal(t, -1, a.Compare(c), "%s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestVersionInfo_String(t *testing.T) {
	assert.Equal(t, "2.10.0", ParseVersion("v2.10.0").String())
	assert.Equal(t, "0.0.0", VersionInfo{}.String())
}
