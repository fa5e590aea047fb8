package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Version Registry (spec §4.7), grounded directly on
// original_source/graph/src/components/versions/registry.rs, translated
// from a lazy_static!+semver::Version map into a sync.Once-initialized
// package-level table (spec §9: avoid hidden init order between a global
// table and its consumers).
//
// No example repo in the retrieval pack imports a third-party semver
// library, so Version here is a minimal major.minor.patch triple rather
// than a new dependency; it supports exactly the comparisons this engine
// needs (>=) and nothing more.

// FeatureFlag names an optional behavior gated by ApiVersion.
type FeatureFlag int

const (
	// BasicOrdering is the one feature flag in the registry table, enabled
	// at 1.1.0 and queryable through SupportsFeature/ApiVersion.Supports.
	// No engine behavior branches on it: BlockState's entity cache is a
	// map and does not keep insertion order under any version.
	BasicOrdering FeatureFlag = iota
)

// Version is a semantic version triple.
type Version struct {
	Major, Minor, Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// GTE reports whether v >= o.
func (v Version) GTE(o Version) bool {
	return !v.Less(o)
}

// ParseVersion parses a "major.minor.patch" string.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor.patch", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// VersionRequirement is a ">=min" requirement, the only shape the host CLI
// and instance construction need (selecting "at least this feature
// version"); it does not select ABI record layouts.
type VersionRequirement struct {
	Min Version
}

func (r VersionRequirement) Matches(v Version) bool {
	return v.GTE(r.Min)
}

var (
	registryOnce sync.Once
	versions     map[Version][]FeatureFlag
	sortedKeys   []Version
)

func initRegistry() {
	registryOnce.Do(func() {
		versions = map[Version][]FeatureFlag{
			{1, 0, 0}: {},
			{1, 1, 0}: {BasicOrdering},
		}
		sortedKeys = make([]Version, 0, len(versions))
		for v := range versions {
			sortedKeys = append(sortedKeys, v)
		}
		sort.Slice(sortedKeys, func(i, j int) bool { return sortedKeys[i].Less(sortedKeys[j]) })
	})
}

// ResolveVersion returns the highest registered version satisfying req, or
// false if none does (spec §4.7; tie-breaking resolved in DESIGN.md in
// favor of the highest match).
func ResolveVersion(req VersionRequirement) (Version, bool) {
	initRegistry()
	for i := len(sortedKeys) - 1; i >= 0; i-- {
		if req.Matches(sortedKeys[i]) {
			return sortedKeys[i], true
		}
	}
	return Version{}, false
}

// SupportsFeature reports whether a registered version enables flag.
func SupportsFeature(v Version, flag FeatureFlag) bool {
	initRegistry()
	for _, f := range versions[v] {
		if f == flag {
			return true
		}
	}
	return false
}

// ApiVersion pairs a resolved Version with the feature set it enables
// (spec §3). It is immutable once constructed.
type ApiVersion struct {
	Version  Version
	features []FeatureFlag
}

// NewApiVersion resolves req against the registry and captures its
// feature set.
func NewApiVersion(req VersionRequirement) (ApiVersion, error) {
	initRegistry()
	v, ok := ResolveVersion(req)
	if !ok {
		return ApiVersion{}, fmt.Errorf("no registered version satisfies requirement >=%s", req.Min)
	}
	return ApiVersion{Version: v, features: versions[v]}, nil
}

// MustApiVersion is like NewApiVersion but panics on failure; useful for
// package-level defaults and tests where the requirement is a constant.
func MustApiVersion(req VersionRequirement) ApiVersion {
	v, err := NewApiVersion(req)
	if err != nil {
		panic(err)
	}
	return v
}

// Supports reports whether this ApiVersion's resolved version enables flag.
func (a ApiVersion) Supports(flag FeatureFlag) bool {
	for _, f := range a.features {
		if f == flag {
			return true
		}
	}
	return false
}

// GTE reports whether this ApiVersion's resolved version is at least v.
func (a ApiVersion) GTE(v Version) bool { return a.Version.GTE(v) }

// ABI version thresholds named in spec §4.6.
var (
	v0_0_2 = Version{0, 0, 2}
	v0_0_3 = Version{0, 0, 3}
	v0_0_4 = Version{0, 0, 4}
)
