package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestTierBackends(t *testing.T) {
	if got := TierModern.Backends(); len(got) != 3 || got[0] != gputypes.BackendVulkan {
		t.Errorf("TierModern.Backends() = %v", got)
	}
	if got := TierLegacy.Backends(); len(got) != 1 || got[0] != gputypes.BackendGL {
		t.Errorf("TierLegacy.Backends() = %v", got)
	}
	if Tier(9).Backends() != nil {
		t.Error("unknown tier should have no backends")
	}
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		backend gputypes.Backend
		want    Tier
	}{
		{gputypes.BackendVulkan, TierModern},
		{gputypes.BackendMetal, TierModern},
		{gputypes.BackendDX12, TierModern},
		{gputypes.BackendGL, TierLegacy},
		{gputypes.BackendEmpty, TierModern},
	}
	for _, tt := range tests {
		if got := tierOf(tt.backend); got != tt.want {
			t.Errorf("tierOf(%v) = %v, want %v", tt.backend, got, tt.want)
		}
	}
	if !TierModern.ImmutableStorage() || TierLegacy.ImmutableStorage() {
		t.Error("only the modern tier has immutable storage")
	}
}

func TestProfileAttributes(t *testing.T) {
	tests := []struct {
		profile Profile
		want    attributes
	}{
		{ProfileBare, attributes{4, gputypes.PowerPreferenceNone, gputypes.CompositeAlphaModePremultiplied}},
		{ProfileNoAntialias, attributes{1, gputypes.PowerPreferenceNone, gputypes.CompositeAlphaModePremultiplied}},
		{ProfileHighPerformance, attributes{1, gputypes.PowerPreferenceHighPerformance, gputypes.CompositeAlphaModePremultiplied}},
		{ProfileNoAlpha, attributes{1, gputypes.PowerPreferenceHighPerformance, gputypes.CompositeAlphaModeOpaque}},
	}
	for _, tt := range tests {
		if got := tt.profile.attributes(); got != tt.want {
			t.Errorf("%v attributes = %+v, want %+v", tt.profile, got, tt.want)
		}
	}
}

func TestProfilesAccumulate(t *testing.T) {
	// Every relaxation made by a profile stays in effect for the
	// profiles after it.
	prev := ProfileBare.attributes()
	for _, p := range DefaultProfiles[1:] {
		a := p.attributes()
		if prev.sampleCount == 1 && a.sampleCount != 1 {
			t.Errorf("%v re-enables multisampling", p)
		}
		if prev.power == gputypes.PowerPreferenceHighPerformance && a.power != prev.power {
			t.Errorf("%v drops the high-performance preference", p)
		}
		if prev.alphaMode == gputypes.CompositeAlphaModeOpaque && a.alphaMode != prev.alphaMode {
			t.Errorf("%v re-enables alpha", p)
		}
		if a == prev {
			t.Errorf("%v relaxes nothing over the previous profile", p)
		}
		prev = a
	}
}

func TestTierAndProfileNames(t *testing.T) {
	names := map[string]string{
		TierModern.String():             "modern",
		TierLegacy.String():             "legacy",
		Tier(7).String():                "unknown",
		ProfileBare.String():            "bare",
		ProfileNoAntialias.String():     "no-antialias",
		ProfileHighPerformance.String(): "high-performance",
		ProfileNoAlpha.String():         "no-alpha",
	}
	for got, want := range names {
		if got != want {
			t.Errorf("name %q, want %q", got, want)
		}
	}
}
