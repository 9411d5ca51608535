package matcher

import (
	"github.com/IGLOU-EU/go-wildcard/v2"

	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/capability"
	"github.com/sudoersgo/policyengine/internal/settings"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// Request is one authorization query: may Invoker on Host run
// CommandPath with CommandArguments as TargetUser:TargetGroup.
type Request struct {
	Invoker           capability.UserHandle
	Host              string
	TargetUser        capability.UserHandle
	TargetGroup       capability.GroupHandle
	CommandPath       string
	CommandArguments  string
}

// Verdict is the matcher's answer: Allow false means deny and Tag is the
// zero value; Allow true carries the execution attributes and a cloned
// snapshot of the policy's effective settings.
type Verdict struct {
	Allow    bool
	Tag      ast.Tag
	Settings *settings.EffectiveSettings
}

func matchesUserSpecifier(spec ast.UserSpecifier, who capability.UserHandle) bool {
	switch spec.Kind {
	case ast.UserKind:
		if spec.Ident.IsNumeric {
			return who.HasUID(int(spec.Ident.ID))
		}
		return who.HasName(spec.Ident.Name)
	case ast.GroupKind, ast.NonunixGroupKind:
		if spec.Ident.IsNumeric {
			return who.InGroupByGID(int(spec.Ident.ID))
		}
		return who.InGroupByName(spec.Ident.Name)
	default:
		return false
	}
}

// matchesRunAsUserSpecifier is matchesUserSpecifier restricted to run-as
// target matching: a non-UNIX group ("%:name") has no local group
// provider to resolve membership against, so per spec.md §9 it never
// matches here (the policy loader records a diagnostic for any such
// entry found in a Runas_Alias body; see sudoers.warnNonunixGroupRunAs).
func matchesRunAsUserSpecifier(spec ast.UserSpecifier, who capability.UserHandle) bool {
	if spec.Kind == ast.NonunixGroupKind {
		return false
	}
	return matchesUserSpecifier(spec, who)
}

// sameUser reports whether a and b denote the same account, compared by
// stable uid rather than interface/pointer identity — two independent
// capability.LookupUser calls for the same name return distinct handles.
func sameUser(a, b capability.UserHandle) bool {
	return a.UID() == b.UID()
}

func matchesGroupIdentifier(id ast.Identifier, group capability.GroupHandle) bool {
	if id.IsNumeric {
		return group.GID() == int(id.ID)
	}
	name, ok := group.Name()
	return ok && name == id.Name
}

func matchesCommand(cmd tokens.Command, path, args string) bool {
	if !wildcard.Match(cmd.PathGlob, path) {
		return false
	}
	if !cmd.HasArgsGlob {
		return true
	}
	if cmd.ArgsGlob == nil {
		return args == ""
	}
	return wildcard.Match(*cmd.ArgsGlob, args)
}

// groupMembership reports whether group is one of who's groups, checked
// by gid first and then by name when the handle can name itself.
func groupMembership(who capability.UserHandle, group capability.GroupHandle) bool {
	if who.InGroupByGID(group.GID()) {
		return true
	}
	if name, ok := group.Name(); ok && who.InGroupByName(name) {
		return true
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
