// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"github.com/gogpu/gputypes"
)

// Tier is a capability level of the graphics API. It decides which shader
// variant is built and whether fixed-size texture storage is available.
type Tier uint8

const (
	// TierModern covers explicit APIs (Vulkan, Metal, DX12) with
	// immutable texture storage.
	TierModern Tier = iota

	// TierLegacy covers OpenGL / OpenGL ES, fed through vertex attributes
	// and mutable texture storage.
	TierLegacy
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierModern:
		return "modern"
	case TierLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// Backends returns the HAL backends belonging to the tier, in preference order.
func (t Tier) Backends() []gputypes.Backend {
	switch t {
	case TierModern:
		return []gputypes.Backend{gputypes.BackendVulkan, gputypes.BackendMetal, gputypes.BackendDX12}
	case TierLegacy:
		return []gputypes.Backend{gputypes.BackendGL}
	default:
		return nil
	}
}

// ImmutableStorage reports whether textures on this tier are allocated
// with a fixed size for their whole lifetime.
func (t Tier) ImmutableStorage() bool {
	return t == TierModern
}

// tierOf maps a backend to the tier that owns it. Backends outside both
// tiers (noop, software) are treated as modern.
func tierOf(b gputypes.Backend) Tier {
	if b == gputypes.BackendGL {
		return TierLegacy
	}
	return TierModern
}

// DefaultTiers is the tier preference used when none is configured.
var DefaultTiers = []Tier{TierModern, TierLegacy}

// Profile is a named set of context attributes tried during negotiation.
// ProfileBare requests nothing special; each later profile keeps the
// relaxations of the ones before it and adds one more.
type Profile uint8

const (
	// ProfileBare uses the backend defaults: 4x multisampling, no adapter
	// preference, premultiplied alpha.
	ProfileBare Profile = iota

	// ProfileNoAntialias disables multisampling.
	ProfileNoAntialias

	// ProfileHighPerformance also prefers a discrete adapter.
	ProfileHighPerformance

	// ProfileNoAlpha also presents the surface as opaque.
	ProfileNoAlpha
)

// String returns the profile name.
func (p Profile) String() string {
	switch p {
	case ProfileBare:
		return "bare"
	case ProfileNoAntialias:
		return "no-antialias"
	case ProfileHighPerformance:
		return "high-performance"
	case ProfileNoAlpha:
		return "no-alpha"
	default:
		return "unknown"
	}
}

// DefaultProfiles is the profile order used when none is configured.
var DefaultProfiles = []Profile{ProfileBare, ProfileNoAntialias, ProfileHighPerformance, ProfileNoAlpha}

// attributes are the concrete settings a profile stands for.
type attributes struct {
	sampleCount uint32
	power       gputypes.PowerPreference
	alphaMode   gputypes.CompositeAlphaMode
}

func (p Profile) attributes() attributes {
	a := attributes{
		sampleCount: 4,
		power:       gputypes.PowerPreferenceNone,
		alphaMode:   gputypes.CompositeAlphaModePremultiplied,
	}
	if p >= ProfileNoAntialias {
		a.sampleCount = 1
	}
	if p >= ProfileHighPerformance {
		a.power = gputypes.PowerPreferenceHighPerformance
	}
	if p >= ProfileNoAlpha {
		a.alphaMode = gputypes.CompositeAlphaModeOpaque
	}
	return a
}
