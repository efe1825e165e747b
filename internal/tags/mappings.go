package tags

import (
	"encoding/json"
	"sort"

	"golang.org/x/text/unicode/norm"
)

type set map[string]struct{}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Mappings is the canonicalized tag reference snapshot.
//
// A Mappings is built once by Resolve and never modified, so it may be
// shared by any number of goroutines without locking.
type Mappings struct {
	aliases      map[string]string
	implications map[string]set
	blacklist    set
	deprecations set
}

// Lookups normalize their argument to NFC, the form reference data is
// stored in.
func normalize(tag string) string {
	return norm.NFC.String(tag)
}

// Canonical returns the canonical name for tag: its alias target if tag is
// an alias, otherwise tag itself.
func (m *Mappings) Canonical(tag string) string {
	tag = normalize(tag)
	if c, ok := m.aliases[tag]; ok {
		return c
	}
	return tag
}

// IsAlias reports whether tag is an alias of another tag.
func (m *Mappings) IsAlias(tag string) bool {
	_, ok := m.aliases[normalize(tag)]
	return ok
}

// Implied returns the closed set of tags implied by tag, sorted. The
// implication map is keyed by canonical names only, so an alias has no
// entry of its own; use Expand to canonicalize first.
func (m *Mappings) Implied(tag string) []string {
	s, ok := m.implications[normalize(tag)]
	if !ok {
		return nil
	}
	return s.sorted()
}

// HasImplications reports whether tag has an entry in the implication map.
func (m *Mappings) HasImplications(tag string) bool {
	_, ok := m.implications[normalize(tag)]
	return ok
}

// Expand canonicalizes each tag and adds everything it implies. The result
// is sorted and free of duplicates.
func (m *Mappings) Expand(tags []string) []string {
	out := make(set, len(tags))
	for _, t := range tags {
		c := m.Canonical(t)
		out[c] = struct{}{}
		for implied := range m.implications[c] {
			out[implied] = struct{}{}
		}
	}
	return out.sorted()
}

// IsBlacklisted reports whether tag is on the blacklist.
func (m *Mappings) IsBlacklisted(tag string) bool {
	_, ok := m.blacklist[normalize(tag)]
	return ok
}

// IsDeprecated reports whether tag is deprecated.
func (m *Mappings) IsDeprecated(tag string) bool {
	_, ok := m.deprecations[normalize(tag)]
	return ok
}

// TagLookup describes one tag against the mappings.
type TagLookup struct {
	Tag         string   `json:"tag"`
	Canonical   string   `json:"canonical"`
	Alias       bool     `json:"alias"`
	Implied     []string `json:"implied"`
	Blacklisted bool     `json:"blacklisted"`
	Deprecated  bool     `json:"deprecated"`
}

// LookupResult is the outcome of looking up a list of tags.
type LookupResult struct {
	Tags     []TagLookup `json:"tags"`
	Expanded []string    `json:"expanded"`
}

// Lookup describes each name and the expanded set of all of them. A tag
// counts as blacklisted or deprecated when either its own name or its
// canonical name is listed.
func (m *Mappings) Lookup(names []string) LookupResult {
	res := LookupResult{
		Tags:     make([]TagLookup, 0, len(names)),
		Expanded: m.Expand(names),
	}
	for _, name := range names {
		name = normalize(name)
		canonical := m.Canonical(name)
		implied := m.Implied(canonical)
		if implied == nil {
			implied = []string{}
		}
		res.Tags = append(res.Tags, TagLookup{
			Tag:         name,
			Canonical:   canonical,
			Alias:       m.IsAlias(name),
			Implied:     implied,
			Blacklisted: m.IsBlacklisted(name) || m.IsBlacklisted(canonical),
			Deprecated:  m.IsDeprecated(name) || m.IsDeprecated(canonical),
		})
	}
	return res
}

// Stats counts the entries of each part of the snapshot.
type Stats struct {
	Aliases      int `json:"aliases"`
	Implications int `json:"implications"`
	Blacklist    int `json:"blacklist"`
	Deprecations int `json:"deprecations"`
}

// Stats returns the snapshot's entry counts.
func (m *Mappings) Stats() Stats {
	return Stats{
		Aliases:      len(m.aliases),
		Implications: len(m.implications),
		Blacklist:    len(m.blacklist),
		Deprecations: len(m.deprecations),
	}
}

// Snapshot is the serializable form of Mappings. Sets are sorted.
type Snapshot struct {
	Aliases      map[string]string   `json:"aliases"`
	Implications map[string][]string `json:"implications"`
	Blacklist    []string            `json:"blacklist"`
	Deprecations []string            `json:"deprecations"`
}

// Snapshot returns a copy of the mappings as plain maps and sorted slices.
func (m *Mappings) Snapshot() Snapshot {
	aliases := make(map[string]string, len(m.aliases))
	for k, v := range m.aliases {
		aliases[k] = v
	}
	implications := make(map[string][]string, len(m.implications))
	for k, v := range m.implications {
		implications[k] = v.sorted()
	}
	return Snapshot{
		Aliases:      aliases,
		Implications: implications,
		Blacklist:    m.blacklist.sorted(),
		Deprecations: m.deprecations.sorted(),
	}
}

// MarshalJSON renders the snapshot. Output is deterministic.
func (m *Mappings) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}
