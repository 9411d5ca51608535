package sudoers

import (
	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/diagnostics"
	"github.com/sudoersgo/policyengine/internal/settings"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// Policy is the analyzed, immutable artifact produced by Load: rules in
// source order (across includes), the four sanitized alias tables, and
// the effective settings after every Defaults directive has been folded
// in. Once returned, a Policy is read-only and safe for concurrent use by
// the matcher.
type Policy struct {
	Rules        []ast.PermissionSpec
	UserAliases  SanitizedAliasTable[ast.UserSpecifier]
	HostAliases  SanitizedAliasTable[tokens.Hostname]
	CmndAliases  SanitizedAliasTable[tokens.Command]
	RunasAliases SanitizedAliasTable[ast.UserSpecifier]
	Settings     *settings.EffectiveSettings
}

// Load parses path (and any files/directories it transitively includes)
// into a Policy, using opener/lister for all I/O. Diagnostics are
// returned alongside the Policy rather than halting loading; a non-empty
// diagnostics list does not mean the Policy is unusable, only that some
// input was dropped or defaulted.
func Load(path string, opener Opener, lister DirLister) (*Policy, []diagnostics.Diagnostic) {
	return LoadWithDepth(path, opener, lister, maxIncludeDepth)
}

// LoadWithDepth is Load with a caller-chosen include-recursion ceiling,
// for embeddings that want a tighter bound than the built-in default.
func LoadWithDepth(path string, opener Opener, lister DirLister, maxDepth int) (*Policy, []diagnostics.Diagnostic) {
	var bag diagnostics.Bag

	r := &rawLoad{opener: opener, lister: lister, bag: &bag, maxDepth: maxDepth}
	r.loadFile(path, 0)
	warnNonunixGroupRunAs(r.runasAliases, &bag)

	p := &Policy{
		Rules:        r.rules,
		UserAliases:  Sanitize(r.userAliases, &bag),
		HostAliases:  Sanitize(r.hostAliases, &bag),
		CmndAliases:  Sanitize(r.cmndAliases, &bag),
		RunasAliases: Sanitize(r.runasAliases, &bag),
		Settings:     settings.New(),
	}

	for _, d := range r.defaults {
		settings.Apply(p.Settings, d, &bag)
	}

	return p, bag.Items()
}

// warnNonunixGroupRunAs diagnoses a "%:name" non-UNIX group reference
// inside a Runas_Alias body: there is no local group provider to resolve
// it against, so per spec.md §9 it is flagged here and, in the matcher,
// always treated as non-matching (see matcher.matchesRunAsUserSpecifier).
func warnNonunixGroupRunAs(defs []AliasDef[ast.UserSpecifier], bag *diagnostics.Bag) {
	for _, d := range defs {
		for _, spec := range d.Body {
			if spec.Value.Kind == ast.MetaOnlyKind && spec.Value.Value.Kind == ast.NonunixGroupKind {
				bag.Addf(d.Pos, "non-UNIX group %%:%s in Runas_Alias %q never matches", spec.Value.Value.Ident.Name, d.Name)
			}
		}
	}
}

// LoadFromPath loads a policy from the local filesystem using the default
// (non-hardened) Opener/DirLister. Production embeddings that need the
// secure-open contract from spec.md §6 should call Load directly with
// their own Opener.
func LoadFromPath(path string) (*Policy, []diagnostics.Diagnostic) {
	return Load(path, OSFiles{}, OSFiles{})
}
