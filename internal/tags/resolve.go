package tags

import (
	"fmt"
	"sort"
)

// Resolve builds the canonical snapshot from raw reference data. Inactive
// relations are ignored.
//
// Aliases must not map a tag to itself, must not give one antecedent two
// different consequents (identical duplicates are allowed), and must not
// chain. Implications are rewritten through the alias map and then closed
// transitively, so every implied set already contains everything reachable
// from it.
func Resolve(aliases, implications []Relation, blacklist, deprecations []string) (*Mappings, error) {
	aliasMap, err := buildAliases(aliases)
	if err != nil {
		return nil, err
	}

	canonical := func(tag string) string {
		if c, ok := aliasMap[tag]; ok {
			return c
		}
		return tag
	}

	implied := make(map[string]set)
	for _, rel := range implications {
		if !rel.Active() {
			continue
		}
		// Antecedents that canonicalize to the same tag merge their sets.
		ante := canonical(rel.Antecedent)
		if implied[ante] == nil {
			implied[ante] = make(set)
		}
		implied[ante][canonical(rel.Consequent)] = struct{}{}
	}

	closeImplications(implied)

	return &Mappings{
		aliases:      aliasMap,
		implications: implied,
		blacklist:    toSet(blacklist),
		deprecations: toSet(deprecations),
	}, nil
}

// MustResolve is like Resolve but panics on invalid reference data.
func MustResolve(aliases, implications []Relation, blacklist, deprecations []string) *Mappings {
	m, err := Resolve(aliases, implications, blacklist, deprecations)
	if err != nil {
		panic(fmt.Sprintf("tags: %v", err))
	}
	return m
}

func buildAliases(relations []Relation) (map[string]string, error) {
	aliasMap := make(map[string]string)
	for _, rel := range relations {
		if !rel.Active() {
			continue
		}
		if rel.Antecedent == rel.Consequent {
			return nil, loadErrorf(ErrCodeSelfAlias, "tag %q is aliased to itself", rel.Antecedent)
		}
		if existing, ok := aliasMap[rel.Antecedent]; ok {
			if existing != rel.Consequent {
				return nil, loadErrorf(ErrCodeDuplicateAntecedent,
					"tag %q is aliased to both %q and %q", rel.Antecedent, existing, rel.Consequent)
			}
			continue
		}
		aliasMap[rel.Antecedent] = rel.Consequent
	}

	// Report the first chain in sorted order so the error is stable.
	antecedents := make([]string, 0, len(aliasMap))
	for a := range aliasMap {
		antecedents = append(antecedents, a)
	}
	sort.Strings(antecedents)
	for _, a := range antecedents {
		c := aliasMap[a]
		if next, ok := aliasMap[c]; ok {
			return nil, loadErrorf(ErrCodeAliasChain, "alias chain %q -> %q -> %q", a, c, next)
		}
	}

	return aliasMap, nil
}

// closeImplications relaxes the relation until a full pass adds nothing.
// Each pass only adds names already present in the relation, so it
// terminates on cyclic input too.
func closeImplications(implied map[string]set) {
	for {
		updates := make(map[string][]string)
		for tag, current := range implied {
			var added []string
			for member := range current {
				for next := range implied[member] {
					if _, ok := current[next]; !ok {
						added = append(added, next)
					}
				}
			}
			if len(added) > 0 {
				updates[tag] = added
			}
		}

		if len(updates) == 0 {
			return
		}
		for tag, added := range updates {
			for _, name := range added {
				implied[tag][name] = struct{}{}
			}
		}
	}
}

func toSet(names []string) set {
	s := make(set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}
