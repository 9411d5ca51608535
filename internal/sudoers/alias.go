// Package sudoers ties the parser, alias sanitizer, include resolver, and
// settings table together into the immutable Policy the matcher consumes.
package sudoers

import (
	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/diagnostics"
)

// AliasDef is one definition line in an alias table, before sanitization.
// It is generic over the concrete item type (UserSpecifier, Hostname or
// Command) because alias-reference detection only ever inspects the
// Meta[T] wrapper around that item, never T itself.
type AliasDef[T any] struct {
	Name string
	Pos  charstream.Position
	Body []ast.Spec[T]
}

// SanitizedAliasTable is one alias table after duplicate/undefined/cycle
// checking: Defs holds the first occurrence of each distinct name in
// source order, and Order is a permutation of its indices such that every
// entry appears after all the other entries its body references.
type SanitizedAliasTable[T any] struct {
	Defs  []AliasDef[T]
	Order []int
	byIdx map[string]int
}

// IndexOf returns the position of name within Defs, if defined.
func (t SanitizedAliasTable[T]) IndexOf(name string) (int, bool) {
	i, ok := t.byIdx[name]
	return i, ok
}

// Sanitize runs the alias-sanitization visitor from spec.md §4.6: dedupe by
// name (first occurrence wins, duplicates diagnosed), then a depth-first
// visit per definition that resolves Alias(name) references, recurses into
// them, and emits a definition only after its dependencies — exactly the
// seen/ordered bookkeeping of sanitize_alias_table's Visitor, translated
// from ownership-graph recursion into index-addressed recursion so the
// in-memory structure stays acyclic even when the semantic graph isn't.
func Sanitize[T any](defs []AliasDef[T], bag *diagnostics.Bag) SanitizedAliasTable[T] {
	byName := make(map[string]int, len(defs))
	kept := make([]AliasDef[T], 0, len(defs))
	for _, d := range defs {
		if _, exists := byName[d.Name]; exists {
			bag.Addf(d.Pos, "multiple occurrences of %q", d.Name)
			continue
		}
		byName[d.Name] = len(kept)
		kept = append(kept, d)
	}

	seen := make([]bool, len(kept))
	emitted := make([]bool, len(kept))
	order := make([]int, 0, len(kept))

	var visit func(i int)
	visit = func(i int) {
		if emitted[i] {
			return
		}
		if seen[i] {
			bag.Addf(kept[i].Pos, "recursive alias: %q", kept[i].Name)
			return
		}
		seen[i] = true
		for _, spec := range kept[i].Body {
			if spec.Value.Kind != ast.MetaAliasKind {
				continue
			}
			j, ok := byName[spec.Value.Alias]
			if !ok {
				bag.Addf(kept[i].Pos, "undefined alias: %q", spec.Value.Alias)
				continue
			}
			visit(j)
		}
		emitted[i] = true
		order = append(order, i)
	}

	for i := range kept {
		visit(i)
	}

	return SanitizedAliasTable[T]{Defs: kept, Order: order, byIdx: byName}
}
