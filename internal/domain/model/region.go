// Package model contains domain models passed between layers.
package model

import "strings"

// Region is a game server region.
type Region string

// Supported regions.
const (
	RegionUS Region = "us"
	RegionEU Region = "eu"
	RegionKR Region = "kr"
	RegionTW Region = "tw"
)

// ParseRegion normalizes a region code. Unknown codes resolve to US, which
// shares the Tuesday reset with TW.
func ParseRegion(s string) Region {
	switch r := Region(strings.ToLower(strings.TrimSpace(s))); r {
	case RegionUS, RegionEU, RegionKR, RegionTW:
		return r
	default:
		return RegionUS
	}
}

// LateReset reports whether the region resets on Wednesday instead of Tuesday.
func (r Region) LateReset() bool {
	return r == RegionEU || r == RegionKR
}
