// Package matcher implements the "later entry wins" authorization
// algorithm over a Policy: alias closure construction, run-as and digest
// filtering, and the final reverse-scan command match. The matcher is a
// pure function of Policy and Request — it never logs, never panics, and
// the only I/O it performs is an on-demand digest read.
package matcher

import (
	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/sudoers"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// matchSpecs implements the list-matching primitive shared by user lists,
// host lists, command lists and alias bodies: scan in reverse, return at
// the first concrete or ALL or alias hit. The caller supplies matches for
// concrete items and aliasIn for alias membership (already-computed
// closure, or the closure under construction when called from within a
// topological alias visit).
func matchSpecs[T any](items []ast.Spec[T], matches func(T) bool, aliasIn func(string) bool) (hit bool, forbid bool) {
	for i := len(items) - 1; i >= 0; i-- {
		m := items[i].Value
		var isHit bool
		switch m.Kind {
		case ast.MetaAllKind:
			isHit = true
		case ast.MetaAliasKind:
			isHit = aliasIn(m.Alias)
		default:
			isHit = matches(m.Value)
		}
		if isHit {
			return true, items[i].Forbid
		}
	}
	return false, false
}

// matchList is matchSpecs collapsed to the bool a non-command list needs:
// true iff the list resolves to an effective allow for the given item.
func matchList[T any](items []ast.Spec[T], matches func(T) bool, aliasIn func(string) bool) bool {
	hit, forbid := matchSpecs(items, matches, aliasIn)
	return hit && !forbid
}

// closureOf computes one alias table's closure bottom-up in its sanitized
// topological order, so any Alias(name) reference inside a body resolves
// against entries already folded into the closure under construction.
func closureOf[T any](table sudoers.SanitizedAliasTable[T], matches func(T) bool) map[string]bool {
	closure := make(map[string]bool, len(table.Defs))
	for _, idx := range table.Order {
		def := table.Defs[idx]
		hit, forbid := matchSpecs(def.Body, matches, func(name string) bool { return closure[name] })
		closure[def.Name] = hit && !forbid
	}
	return closure
}

func matchesHostname(h tokens.Hostname, host string) bool {
	return string(h) == host
}
