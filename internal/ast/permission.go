package ast

import (
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// Clause is one (hosts, run-as, commands) tuple of a permission line; a
// line may chain several of these separated by ':'.
type Clause struct {
	Hosts    []Spec[tokens.Hostname]
	RunAs    *RunAs
	Commands []CommandSpec
}

// grammar: hostclause = hostlist "=" [ runas ] cmdspeclist
func ParseClause(s *charstream.Stream) parser.Parsed[Clause] {
	hosts := parser.Try(s, func(s *charstream.Stream) parser.Parsed[[]Spec[tokens.Hostname]] {
		return ParseSpecList(s, tokens.ParseHostname)
	})
	if hosts.Status != parser.StatusOK {
		return parser.Parsed[Clause]{Status: hosts.Status, Err: hosts.Err}
	}

	if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
		return parser.AcceptLiteral(s, '=')
	}, "expected '=' after host list"); e.Status == parser.StatusFatal {
		return parser.Fatal[Clause](e.Err.Pos, e.Err.Message)
	}

	runas := parser.Maybe(s, ParseRunAs)
	if runas.Status == parser.StatusFatal {
		return parser.Fatal[Clause](runas.Err.Pos, runas.Err.Message)
	}
	skipSpaces(s)

	cmds := parser.Expect(s, ParseCommandSpecList, "expected command specification")
	if cmds.Status == parser.StatusFatal {
		return parser.Fatal[Clause](cmds.Err.Pos, cmds.Err.Message)
	}

	var ra *RunAs
	if runas.Value.Present {
		v := runas.Value.Value
		ra = &v
	}

	return parser.Ok(Clause{Hosts: hosts.Value, RunAs: ra, Commands: cmds.Value})
}

// grammar: ( host, runas, commandspec ) can repeat, separated by ':'
func ParseClauseList(s *charstream.Stream) parser.Parsed[[]Clause] {
	return parser.ListOf(s, ParseClause, ':', listLimit)
}

// PermissionSpec is one sudoers-style rule: who, on which hosts, may run
// which commands as whom.
type PermissionSpec struct {
	Users   []Spec[UserSpecifier]
	Clauses []Clause
}

// grammar: spec = userlist hostclause { ":" hostclause }
func ParsePermissionSpec(s *charstream.Stream) parser.Parsed[PermissionSpec] {
	users := parser.Try(s, func(s *charstream.Stream) parser.Parsed[[]Spec[UserSpecifier]] {
		return ParseSpecList(s, ParseUserSpecifier)
	})
	if users.Status != parser.StatusOK {
		return parser.Parsed[PermissionSpec]{Status: users.Status, Err: users.Err}
	}
	skipSpaces(s)

	clauses := parser.Expect(s, ParseClauseList, "expected 'HOST = COMMAND' after user list")
	if clauses.Status == parser.StatusFatal {
		return parser.Fatal[PermissionSpec](clauses.Err.Pos, clauses.Err.Message)
	}

	return parser.Ok(PermissionSpec{Users: users.Value, Clauses: clauses.Value})
}
