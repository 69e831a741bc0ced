package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryByName(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"arris_sb8200", "technicolor_tc4400", "netgear_cm", "motorola_mb",
		"virgin_superhub", "hitron_coda", "compal_ch7465", "sagemcom_fast",
		"broadcom_generic",
	} {
		d, ok := r.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, d.Name)
		require.NotNil(t, d.New, name)
		assert.NotNil(t, d.New(), name)
	}
	_, ok := r.ByName("nonexistent")
	assert.False(t, ok)
}

func TestRegistryFallback(t *testing.T) {
	r := NewRegistry()
	fb := r.Fallback()
	require.NotNil(t, fb)
	assert.Equal(t, "broadcom_generic", fb.Name)
	assert.True(t, fb.Fallback)
}

func TestMatchPreAuthANDSemantics(t *testing.T) {
	r := NewRegistry()

	// Motorola needs both "motorola" and "hnap" present.
	partial := r.MatchPreAuth("<html>Motorola modem</html>")
	for _, d := range partial {
		assert.NotEqual(t, "motorola_mb", d.Name)
	}

	full := r.MatchPreAuth("<html>Motorola modem /HNAP1/ endpoint</html>")
	names := descriptorNames(full)
	assert.Contains(t, names, "motorola_mb")
}

func TestMatchPreAuthCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	names := descriptorNames(r.MatchPreAuth("<title>ARRIS SB8200</title>"))
	assert.Contains(t, names, "arris_sb8200")
}

func TestFallbackExcludedFromHeuristics(t *testing.T) {
	r := NewRegistry()
	// A page matching absolutely everything still never nominates the
	// fallback.
	everything := "arris technicolor netgear motorola hnap /hnap1/ hitron compal sagemcom broadcom rest cablemodem downstream bonded channels"
	for _, d := range r.MatchPreAuth(everything) {
		assert.False(t, d.Fallback)
	}
	for _, d := range r.MatchPostAuth(everything) {
		assert.False(t, d.Fallback)
	}
}

func TestMatchNoCandidates(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.MatchPreAuth("<html>generic login</html>"))
	assert.Empty(t, r.MatchPreAuth(""))
}

func TestIntersect(t *testing.T) {
	r := NewRegistry()
	arris, _ := r.ByName("arris_sb8200")
	netgear, _ := r.ByName("netgear_cm")
	moto, _ := r.ByName("motorola_mb")

	got := Intersect([]*Descriptor{arris, netgear}, []*Descriptor{netgear, moto})
	require.Len(t, got, 1)
	assert.Equal(t, "netgear_cm", got[0].Name)

	assert.Empty(t, Intersect([]*Descriptor{arris}, []*Descriptor{moto}))
}

func TestSortedPatterns(t *testing.T) {
	d := &Descriptor{URLPatterns: []URLPattern{
		{Path: "/b", Priority: 3},
		{Path: "/a", Priority: 1},
		{Path: "/c", Priority: 2},
	}}
	sorted := SortedPatterns(d)
	require.Len(t, sorted, 3)
	assert.Equal(t, "/a", sorted[0].Path)
	assert.Equal(t, "/c", sorted[1].Path)
	assert.Equal(t, "/b", sorted[2].Path)
	// Original untouched.
	assert.Equal(t, "/b", d.URLPatterns[0].Path)
}

func TestDescriptorCapabilityGating(t *testing.T) {
	r := NewRegistry()
	moto, _ := r.ByName("motorola_mb")
	assert.NotNil(t, moto.Restart)

	fb := r.Fallback()
	assert.Nil(t, fb.Restart)
}

func descriptorNames(list []*Descriptor) []string {
	out := make([]string, len(list))
	for i, d := range list {
		out[i] = d.Name
	}
	return out
}
