package matcher

import (
	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/digest"
	"github.com/sudoersgo/policyengine/internal/sudoers"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// commandTuple is one (tag, command spec, digest, run-as) entry of the
// flat sequence the matcher builds before filtering and the final
// command match, per spec.md §4.8 step 2.
type commandTuple struct {
	tag    ast.Tag
	cmd    ast.Spec[tokens.Command]
	digest ast.Digest
	runAs  *ast.RunAs
}

// Check evaluates req against p and returns the verdict. It is total: it
// never panics, and any failure to match (including a failed digest read)
// simply denies.
func Check(p *sudoers.Policy, req Request) Verdict {
	userClosure := closureOf(p.UserAliases, func(spec ast.UserSpecifier) bool {
		return matchesUserSpecifier(spec, req.Invoker)
	})
	hostClosure := closureOf(p.HostAliases, func(h tokens.Hostname) bool {
		return matchesHostname(h, req.Host)
	})
	cmndClosure := closureOf(p.CmndAliases, func(c tokens.Command) bool {
		return matchesCommand(c, req.CommandPath, req.CommandArguments)
	})
	runasClosure := closureOf(p.RunasAliases, func(spec ast.UserSpecifier) bool {
		return matchesRunAsUserSpecifier(spec, req.TargetUser)
	})

	var tuples []commandTuple
	for _, spec := range p.Rules {
		if !matchList(spec.Users, func(u ast.UserSpecifier) bool {
			return matchesUserSpecifier(u, req.Invoker)
		}, func(name string) bool { return userClosure[name] }) {
			continue
		}

		var currentRunAs *ast.RunAs
		for _, clause := range spec.Clauses {
			if !matchList(clause.Hosts, func(h tokens.Hostname) bool {
				return matchesHostname(h, req.Host)
			}, func(name string) bool { return hostClosure[name] }) {
				continue
			}
			if clause.RunAs != nil {
				currentRunAs = clause.RunAs
			}
			for _, cs := range clause.Commands {
				tuples = append(tuples, commandTuple{tag: cs.Tag, cmd: cs.Command, digest: cs.Digest, runAs: currentRunAs})
			}
		}
	}

	digestTable := digest.NewTable()
	var survivors []commandTuple
	for _, t := range tuples {
		if !runAsAllows(t.runAs, req, runasClosure) {
			continue
		}
		if !t.digest.Empty {
			sum, err := digestTable.Digest(req.CommandPath, t.digest.Bits)
			if err != nil || !bytesEqual(sum, t.digest.Bytes) {
				continue
			}
		}
		survivors = append(survivors, t)
	}

	for i := len(survivors) - 1; i >= 0; i-- {
		m := survivors[i].cmd.Value
		var hit bool
		switch m.Kind {
		case ast.MetaAllKind:
			hit = true
		case ast.MetaAliasKind:
			hit = cmndClosure[m.Alias]
		default:
			hit = matchesCommand(m.Value, req.CommandPath, req.CommandArguments)
		}
		if !hit {
			continue
		}
		if survivors[i].cmd.Forbid {
			return Verdict{Allow: false, Settings: p.Settings.Clone()}
		}

		tag := survivors[i].tag
		if req.Invoker.IsRoot() || (sameUser(req.Invoker, req.TargetUser) && groupMembership(req.Invoker, req.TargetGroup)) {
			tag.RequiresPassword = false
		}
		return Verdict{Allow: true, Tag: tag, Settings: p.Settings.Clone()}
	}

	return Verdict{Allow: false, Settings: p.Settings.Clone()}
}

// runAsAllows implements spec.md §4.8 step 3: the target user/group
// filter, including the no-RunAs default ("must be root, in one of
// root's groups") and the empty-list defaults within a RunAs clause.
func runAsAllows(runAs *ast.RunAs, req Request, runasClosure map[string]bool) bool {
	if runAs == nil {
		return req.TargetUser.IsRoot() && groupMembership(req.TargetUser, req.TargetGroup)
	}

	userOK := true
	if len(runAs.Users) == 0 {
		userOK = sameUser(req.Invoker, req.TargetUser)
	} else {
		userOK = matchList(runAs.Users, func(u ast.UserSpecifier) bool {
			return matchesRunAsUserSpecifier(u, req.TargetUser)
		}, func(name string) bool { return runasClosure[name] })
	}
	if !userOK {
		return false
	}

	if len(runAs.Groups) == 0 {
		return groupMembership(req.TargetUser, req.TargetGroup)
	}
	return matchList(runAs.Groups, func(id ast.Identifier) bool {
		return matchesGroupIdentifier(id, req.TargetGroup)
	}, func(string) bool { return false })
}
