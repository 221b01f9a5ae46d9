package amf

import (
	"fmt"
)

// MakeFullVersion packs a version the way AMF_MAKE_FULL_VERSION does.
func MakeFullVersion(major, minor, release, build uint16) uint64 {
	return uint64(major)<<48 | uint64(minor)<<32 | uint64(release)<<16 | uint64(build)
}

type Version struct {
	Major   uint16
	Minor   uint16
	Release uint16
	Build   uint16
}

func ParseFullVersion(v uint64) Version {
	return Version{
		Major:   uint16(v >> 48),
		Minor:   uint16(v >> 32),
		Release: uint16(v >> 16),
		Build:   uint16(v),
	}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Release, v.Build)
}
