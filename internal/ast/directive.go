package ast

import (
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// The directive bodies below carry the name's position (Pos, or NamePos
// for Defaults) so downstream diagnostics
// (duplicate/undefined/cycle for aliases, unknown/type-mismatched for
// Defaults) can be reported at the name's source position.

// AliasKind distinguishes the four alias tables a policy maintains.
type AliasKind int

const (
	UserAliasKind AliasKind = iota
	HostAliasKind
	CmndAliasKind
	RunasAliasKind
)

// UserAliasDef, HostAliasDef, CmndAliasDef and RunasAliasDef are the four
// shapes an alias definition line can take; each names the concrete item
// type the alias stands for.
type UserAliasDef struct {
	Name string
	Pos  charstream.Position
	Body []Spec[UserSpecifier]
}

type HostAliasDef struct {
	Name string
	Pos  charstream.Position
	Body []Spec[tokens.Hostname]
}

type CmndAliasDef struct {
	Name string
	Pos  charstream.Position
	Body []Spec[tokens.Command]
}

// RunasAliasDef reuses UserSpecifier: a run-as alias body is written with
// the same syntax as a RunAs user list, including "%group" entries.
type RunasAliasDef struct {
	Name string
	Pos  charstream.Position
	Body []Spec[UserSpecifier]
}

// DefaultsOp is the assignment operator of a Defaults directive.
type DefaultsOp int

const (
	OpNone DefaultsOp = iota // bare "name" or "!name"
	OpAssign
	OpAdd
	OpDel
)

// DefaultsDirective is a raw "Defaults [!]name [op value]" line. Type
// checking against the recognized setting table (flag/text/num/list/enum)
// happens downstream, in internal/settings, not here.
type DefaultsDirective struct {
	Negated  bool
	Name     string
	NamePos  charstream.Position
	Op       DefaultsOp
	Value    string
	HasValue bool
}

// Directive is one alias-definition or Defaults line.
type Directive struct {
	Kind       DirectiveKind
	UserAlias  *UserAliasDef
	HostAlias  *HostAliasDef
	CmndAlias  *CmndAliasDef
	RunasAlias *RunasAliasDef
	Defaults   *DefaultsDirective
}

type DirectiveKind int

const (
	UserAliasDirective DirectiveKind = iota
	HostAliasDirective
	CmndAliasDirective
	RunasAliasDirective
	DefaultsKind
)

// tryWord attempts to match word as a whole token (not a prefix of a
// longer identifier), rewinding on failure.
func tryWord(s *charstream.Stream, word string) bool {
	mark := s.Mark()
	for _, r := range word {
		if parser.AcceptLiteral(s, r).Status != parser.StatusOK {
			s.Reset(mark)
			return false
		}
	}
	if next, ok := s.Peek(); ok && (next == '_' || isWordContinuation(next)) {
		s.Reset(mark)
		return false
	}
	return true
}

func isWordContinuation(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func skipSpaces(s *charstream.Stream) {
	for {
		r, ok := s.Peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		s.Advance()
	}
}

// grammar: directive = ("User_Alias"|"Host_Alias"|"Cmnd_Alias"|"Cmd_Alias"|"Runas_Alias") UPPER "=" list
func ParseAliasDirective(s *charstream.Stream) parser.Parsed[Directive] {
	var kind AliasKind
	switch {
	case tryWord(s, "User_Alias"):
		kind = UserAliasKind
	case tryWord(s, "Host_Alias"):
		kind = HostAliasKind
	case tryWord(s, "Cmnd_Alias"), tryWord(s, "Cmd_Alias"):
		kind = CmndAliasKind
	case tryWord(s, "Runas_Alias"):
		kind = RunasAliasKind
	default:
		return parser.Reject[Directive]()
	}

	skipSpaces(s)
	namePos := s.Position()
	name := parser.Expect(s, tokens.ParseUpper, "expected alias name")
	if name.Status == parser.StatusFatal {
		return parser.Fatal[Directive](name.Err.Pos, name.Err.Message)
	}
	skipSpaces(s)
	if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
		return parser.AcceptLiteral(s, '=')
	}, "expected '=' in alias definition"); e.Status == parser.StatusFatal {
		return parser.Fatal[Directive](e.Err.Pos, e.Err.Message)
	}
	skipSpaces(s)

	switch kind {
	case UserAliasKind:
		body := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[[]Spec[UserSpecifier]] {
			return ParseSpecList(s, ParseUserSpecifier)
		}, "expected user list")
		if body.Status == parser.StatusFatal {
			return parser.Fatal[Directive](body.Err.Pos, body.Err.Message)
		}
		return parser.Ok(Directive{Kind: UserAliasDirective, UserAlias: &UserAliasDef{Name: string(name.Value), Pos: namePos, Body: body.Value}})
	case HostAliasKind:
		body := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[[]Spec[tokens.Hostname]] {
			return ParseSpecList(s, tokens.ParseHostname)
		}, "expected host list")
		if body.Status == parser.StatusFatal {
			return parser.Fatal[Directive](body.Err.Pos, body.Err.Message)
		}
		return parser.Ok(Directive{Kind: HostAliasDirective, HostAlias: &HostAliasDef{Name: string(name.Value), Pos: namePos, Body: body.Value}})
	case CmndAliasKind:
		body := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[[]Spec[tokens.Command]] {
			return ParseSpecList(s, tokens.ParseCommand)
		}, "expected command list")
		if body.Status == parser.StatusFatal {
			return parser.Fatal[Directive](body.Err.Pos, body.Err.Message)
		}
		return parser.Ok(Directive{Kind: CmndAliasDirective, CmndAlias: &CmndAliasDef{Name: string(name.Value), Pos: namePos, Body: body.Value}})
	default: // RunasAliasKind
		body := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[[]Spec[UserSpecifier]] {
			return ParseSpecList(s, ParseUserSpecifier)
		}, "expected run-as user list")
		if body.Status == parser.StatusFatal {
			return parser.Fatal[Directive](body.Err.Pos, body.Err.Message)
		}
		return parser.Ok(Directive{Kind: RunasAliasDirective, RunasAlias: &RunasAliasDef{Name: string(name.Value), Pos: namePos, Body: body.Value}})
	}
}

func parseDefaultsName(s *charstream.Stream) parser.Parsed[tokens.Username] {
	return tokens.ParseUsername(s)
}

func parseDefaultsValue(s *charstream.Stream) (string, *parser.Error) {
	if next, ok := s.Peek(); ok && next == '"' {
		s.Advance()
		text := parser.Expect(s, tokens.ParseQuotedText, "unterminated Defaults value")
		if text.Status == parser.StatusFatal {
			return "", text.Err
		}
		if parser.AcceptLiteral(s, '"').Status != parser.StatusOK {
			return "", &parser.Error{Pos: s.Position(), Message: "unterminated Defaults value"}
		}
		return string(text.Value), nil
	}
	text := parser.Expect(s, tokens.ParseStringParameter, "expected Defaults value")
	if text.Status == parser.StatusFatal {
		return "", text.Err
	}
	return string(text.Value), nil
}

// grammar: "Defaults" [ "!" ] name [ op value ]
func ParseDefaultsDirective(s *charstream.Stream) parser.Parsed[Directive] {
	if !tryWord(s, "Defaults") {
		return parser.Reject[Directive]()
	}
	skipSpaces(s)

	negated := parser.AcceptLiteral(s, '!').Status == parser.StatusOK
	if negated {
		skipSpaces(s)
	}

	namePos := s.Position()
	name := parser.Expect(s, parseDefaultsName, "expected setting name")
	if name.Status == parser.StatusFatal {
		return parser.Fatal[Directive](name.Err.Pos, name.Err.Message)
	}
	skipSpaces(s)

	d := DefaultsDirective{Negated: negated, Name: string(name.Value), NamePos: namePos}

	switch {
	case tryWord(s, "+="):
		d.Op = OpAdd
	case tryWord(s, "-="):
		d.Op = OpDel
	case parser.AcceptLiteral(s, '=').Status == parser.StatusOK:
		d.Op = OpAssign
	default:
		return parser.Ok(Directive{Kind: DefaultsKind, Defaults: &d})
	}

	skipSpaces(s)
	value, err := parseDefaultsValue(s)
	if err != nil {
		return parser.Fatal[Directive](err.Pos, err.Message)
	}
	d.Value = value
	d.HasValue = true
	return parser.Ok(Directive{Kind: DefaultsKind, Defaults: &d})
}

// ParseDirective tries an alias definition, then a Defaults directive.
func ParseDirective(s *charstream.Stream) parser.Parsed[Directive] {
	alias := parser.Try(s, ParseAliasDirective)
	if alias.Status != parser.StatusReject {
		return alias
	}
	return parser.Try(s, ParseDefaultsDirective)
}
