package parsers

import (
	"sort"
	"strings"
)

// Registry is the immutable set of parser descriptors, built once at process
// start by explicit construction. Heuristic pattern sets are lowercased into
// an aggregated index at build time so matching never rescans descriptors.
type Registry struct {
	byName   map[string]*Descriptor
	ordered  []*Descriptor
	fallback *Descriptor

	preIndex  []indexEntry
	postIndex []indexEntry
}

type indexEntry struct {
	desc     *Descriptor
	patterns []string // lowercased, AND semantics
}

// NewRegistry constructs the registry with every known parser.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]*Descriptor)}
	for _, d := range allDescriptors() {
		r.add(d)
	}
	return r
}

func (r *Registry) add(d *Descriptor) {
	if _, dup := r.byName[d.Name]; dup {
		panic("duplicate parser name " + d.Name)
	}
	r.byName[d.Name] = d
	r.ordered = append(r.ordered, d)
	if d.Fallback {
		r.fallback = d
		// The fallback is selectable only explicitly; it never joins
		// the heuristic indexes.
		return
	}
	if len(d.PreAuthMatch) > 0 {
		r.preIndex = append(r.preIndex, indexEntry{desc: d, patterns: lowerAll(d.PreAuthMatch)})
	}
	if len(d.PostAuthMatch) > 0 {
		r.postIndex = append(r.postIndex, indexEntry{desc: d, patterns: lowerAll(d.PostAuthMatch)})
	}
}

// ByName looks a parser up by its registered name.
func (r *Registry) ByName(name string) (*Descriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns every descriptor in registration order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Fallback returns the generic catch-all parser.
func (r *Registry) Fallback() *Descriptor {
	return r.fallback
}

// MatchPreAuth nominates parsers whose pre-auth patterns ALL occur in the
// unauthenticated page content.
func (r *Registry) MatchPreAuth(html string) []*Descriptor {
	return matchIndex(r.preIndex, html)
}

// MatchPostAuth nominates parsers whose post-auth patterns ALL occur in the
// page-hint content.
func (r *Registry) MatchPostAuth(html string) []*Descriptor {
	return matchIndex(r.postIndex, html)
}

func matchIndex(index []indexEntry, html string) []*Descriptor {
	lower := strings.ToLower(html)
	var out []*Descriptor
	for _, entry := range index {
		all := true
		for _, p := range entry.patterns {
			if !strings.Contains(lower, p) {
				all = false
				break
			}
		}
		if all {
			out = append(out, entry.desc)
		}
	}
	return out
}

// Intersect returns descriptors present in both sets, preserving a's order.
func Intersect(a, b []*Descriptor) []*Descriptor {
	inB := make(map[string]bool, len(b))
	for _, d := range b {
		inB[d.Name] = true
	}
	var out []*Descriptor
	for _, d := range a {
		if inB[d.Name] {
			out = append(out, d)
		}
	}
	return out
}

// SortedPatterns returns a descriptor's URL patterns in priority order
// without mutating the descriptor.
func SortedPatterns(d *Descriptor) []URLPattern {
	out := make([]URLPattern, len(d.URLPatterns))
	copy(out, d.URLPatterns)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
