package ast

import (
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
)

// RunAs is the parenthesized clause specifying permitted target users and
// groups. Either list may be empty.
type RunAs struct {
	Users  []Spec[UserSpecifier]
	Groups []Spec[Identifier]
}

// grammar: runas = "(" [ userlist ] [ ":" [ grouplist ] ] ")"
func ParseRunAs(s *charstream.Stream) parser.Parsed[RunAs] {
	if parser.AcceptLiteral(s, '(').Status != parser.StatusOK {
		return parser.Reject[RunAs]()
	}

	users := parser.Maybe(s, func(s *charstream.Stream) parser.Parsed[[]Spec[UserSpecifier]] {
		return ParseSpecList(s, ParseUserSpecifier)
	})
	if users.Status == parser.StatusFatal {
		return parser.Fatal[RunAs](users.Err.Pos, users.Err.Message)
	}

	var groups parser.Parsed[parser.Option[[]Spec[Identifier]]]
	if parser.AcceptLiteral(s, ':').Status == parser.StatusOK {
		groups = parser.Maybe(s, func(s *charstream.Stream) parser.Parsed[[]Spec[Identifier]] {
			return ParseSpecList(s, ParseIdentifier)
		})
		if groups.Status == parser.StatusFatal {
			return parser.Fatal[RunAs](groups.Err.Pos, groups.Err.Message)
		}
	}

	if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
		return parser.AcceptLiteral(s, ')')
	}, "expected ')' to close run-as specification"); e.Status == parser.StatusFatal {
		return parser.Fatal[RunAs](e.Err.Pos, e.Err.Message)
	}

	result := RunAs{}
	if users.Value.Present {
		result.Users = users.Value.Value
	}
	if groups.Value.Present {
		result.Groups = groups.Value.Value
	}
	return parser.Ok(result)
}
