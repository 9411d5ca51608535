package ast

import (
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// Identifier is either a name or a numeric id (literal syntax "#N").
type Identifier struct {
	IsNumeric bool
	Name      string
	ID        uint64
}

// grammar: identifier = name | "#" digits
func ParseIdentifier(s *charstream.Stream) parser.Parsed[Identifier] {
	if parser.AcceptLiteral(s, '#').Status == parser.StatusOK {
		digits := parser.Expect(s, tokens.ParseDigits, "expected numeric id after '#'")
		if digits.Status == parser.StatusFatal {
			return parser.Fatal[Identifier](digits.Err.Pos, digits.Err.Message)
		}
		return parser.Ok(Identifier{IsNumeric: true, ID: uint64(digits.Value)})
	}

	name := parser.Try(s, tokens.ParseUsername)
	switch name.Status {
	case parser.StatusOK:
		return parser.Ok(Identifier{Name: string(name.Value)})
	case parser.StatusFatal:
		return parser.Fatal[Identifier](name.Err.Pos, name.Err.Message)
	default:
		return parser.Reject[Identifier]()
	}
}

// UserSpecifierKind distinguishes the four ways a user position can be
// written: a plain user, a UNIX group ("%group"), a non-UNIX group
// ("%:group"), or a netgroup ("+netgroup", reserved and rejected).
type UserSpecifierKind int

const (
	UserKind UserSpecifierKind = iota
	GroupKind
	NonunixGroupKind
)

type UserSpecifier struct {
	Kind  UserSpecifierKind
	Ident Identifier
}

// grammar: userspec = identifier | "%" identifier | "%:" identifier | "+" netgroup
func ParseUserSpecifier(s *charstream.Stream) parser.Parsed[UserSpecifier] {
	if parser.AcceptLiteral(s, '%').Status == parser.StatusOK {
		kind := GroupKind
		if parser.AcceptLiteral(s, ':').Status == parser.StatusOK {
			kind = NonunixGroupKind
		}
		ident := parser.Expect(s, ParseIdentifier, "expected identifier after '%'")
		if ident.Status == parser.StatusFatal {
			return parser.Fatal[UserSpecifier](ident.Err.Pos, ident.Err.Message)
		}
		return parser.Ok(UserSpecifier{Kind: kind, Ident: ident.Value})
	}

	if parser.AcceptLiteral(s, '+').Status == parser.StatusOK {
		return parser.Fatal[UserSpecifier](s.Position(), "netgroups are not supported")
	}

	ident := parser.Try(s, ParseIdentifier)
	switch ident.Status {
	case parser.StatusOK:
		return parser.Ok(UserSpecifier{Kind: UserKind, Ident: ident.Value})
	case parser.StatusFatal:
		return parser.Fatal[UserSpecifier](ident.Err.Pos, ident.Err.Message)
	default:
		return parser.Reject[UserSpecifier]()
	}
}
