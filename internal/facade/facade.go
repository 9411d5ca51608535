// Package facade is the single entry point embedders use instead of
// reaching into sudoers and matcher directly: load a policy file, run a
// request against it, and read back the settings or diagnostics that came
// out of loading. It exists to keep sudoers free of any matcher import —
// matcher depends on sudoers' Policy type, so the wiring has to live above
// both.
package facade

import (
	"github.com/sudoersgo/policyengine/internal/diagnostics"
	"github.com/sudoersgo/policyengine/internal/matcher"
	"github.com/sudoersgo/policyengine/internal/settings"
	"github.com/sudoersgo/policyengine/internal/sudoers"
)

// Policy is a loaded sudoers-style policy together with the diagnostics
// produced while loading it. A Policy with non-empty Diagnostics is still
// usable: diagnostics report dropped or defaulted input, not failure.
type Policy struct {
	inner       *sudoers.Policy
	Diagnostics []diagnostics.Diagnostic
}

// LoadFromPath loads a policy from the local filesystem with the default,
// non-hardened file access.
func LoadFromPath(path string) (*Policy, error) {
	p, diags := sudoers.LoadFromPath(path)
	return &Policy{inner: p, Diagnostics: diags}, nil
}

// LoadFromPathWithDepth is LoadFromPath with a caller-chosen include-
// recursion ceiling, e.g. from config.Config.IncludeDepth.
func LoadFromPathWithDepth(path string, maxDepth int) (*Policy, error) {
	p, diags := sudoers.LoadWithDepth(path, sudoers.OSFiles{}, sudoers.OSFiles{}, maxDepth)
	return &Policy{inner: p, Diagnostics: diags}, nil
}

// Load loads a policy using a caller-supplied Opener/DirLister, e.g. one
// that enforces the secure-open contract (no symlinks, parent directories
// owned by root and not group/world-writable) before handing back bytes.
func Load(path string, opener sudoers.Opener, lister sudoers.DirLister) *Policy {
	p, diags := sudoers.Load(path, opener, lister)
	return &Policy{inner: p, Diagnostics: diags}
}

// Check runs one authorization request against the policy.
func (p *Policy) Check(req matcher.Request) matcher.Verdict {
	return matcher.Check(p.inner, req)
}

// EffectiveSettings returns a snapshot of the policy's Defaults table after
// every directive encountered while loading has been folded in.
func (p *Policy) EffectiveSettings() *settings.EffectiveSettings {
	return p.inner.Settings.Clone()
}

// RuleCount returns the number of permission specs the policy carries,
// mainly useful for a "validate" style inspection command.
func (p *Policy) RuleCount() int {
	return len(p.inner.Rules)
}
