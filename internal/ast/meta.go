// Package ast is the typed representation of a sudoers-style policy file:
// permission specs, alias definitions, include directives, defaults
// assignments, and line comments, together with the recursive-descent
// grammar that builds them from a charstream.Stream.
package ast

import (
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// MetaKind distinguishes the three things any Meta[T] position can hold.
type MetaKind int

const (
	MetaOnlyKind MetaKind = iota
	MetaAllKind
	MetaAliasKind
)

// Meta wraps a position that accepts the keyword ALL, an upper-case alias
// name, or a concrete T.
type Meta[T any] struct {
	Kind  MetaKind
	Alias string
	Value T
}

func All[T any]() Meta[T]             { return Meta[T]{Kind: MetaAllKind} }
func AliasRef[T any](name string) Meta[T] { return Meta[T]{Kind: MetaAliasKind, Alias: name} }
func Only[T any](v T) Meta[T]         { return Meta[T]{Kind: MetaOnlyKind, Value: v} }

// Qualified is a value with (possibly folded) "!" negation applied.
type Qualified[T any] struct {
	Forbid bool
	Value  T
}

// Spec is the combination every list-of-candidates position uses:
// negatable, and able to hold ALL / an alias / a concrete item.
type Spec[T any] = Qualified[Meta[T]]

func Allow[T any](v T) Qualified[T] { return Qualified[T]{Value: v} }
func Forbid[T any](v T) Qualified[T] { return Qualified[T]{Forbid: true, Value: v} }

// ParseMeta parses Meta[T]: first tries the "ALL" keyword or an alias
// identifier (both lexically an Upper token), then falls back to a
// concrete T. This relies on every T's grammar forbidding an upper-case
// leading character, which is what lets this be LL(1).
func ParseMeta[T any](s *charstream.Stream, parseT parser.Func[T]) parser.Parsed[Meta[T]] {
	upper := parser.Try(s, tokens.ParseUpper)
	if upper.Status == parser.StatusOK {
		name := string(upper.Value)
		if name == "ALL" {
			return parser.Ok(All[T]())
		}
		return parser.Ok(AliasRef[T](name))
	}
	if upper.Status == parser.StatusFatal {
		return parser.Fatal[Meta[T]](upper.Err.Pos, upper.Err.Message)
	}

	t := parser.Try(s, parseT)
	switch t.Status {
	case parser.StatusOK:
		return parser.Ok(Only(t.Value))
	case parser.StatusFatal:
		return parser.Fatal[Meta[T]](t.Err.Pos, t.Err.Message)
	default:
		return parser.Reject[Meta[T]]()
	}
}

// ParseQualified parses a (possibly negated) T, folding repeated "!".
func ParseQualified[T any](s *charstream.Stream, parseT parser.Func[T]) parser.Parsed[Qualified[T]] {
	neg := false
	sawBang := false
	for parser.AcceptLiteral(s, '!').Status == parser.StatusOK {
		neg = !neg
		sawBang = true
	}

	if sawBang {
		v := parser.Expect(s, parseT, "expected item after '!'")
		if v.Status == parser.StatusFatal {
			return parser.Fatal[Qualified[T]](v.Err.Pos, v.Err.Message)
		}
		return parser.Ok(Qualified[T]{Forbid: neg, Value: v.Value})
	}

	v := parser.Try(s, parseT)
	switch v.Status {
	case parser.StatusOK:
		return parser.Ok(Qualified[T]{Value: v.Value})
	case parser.StatusFatal:
		return parser.Fatal[Qualified[T]](v.Err.Pos, v.Err.Message)
	default:
		return parser.Reject[Qualified[T]]()
	}
}

// ParseSpec parses a Spec[T] = Qualified[Meta[T]].
func ParseSpec[T any](s *charstream.Stream, parseT parser.Func[T]) parser.Parsed[Spec[T]] {
	return ParseQualified(s, func(s *charstream.Stream) parser.Parsed[Meta[T]] {
		return ParseMeta(s, parseT)
	})
}

// ParseSpecList parses a comma-separated Spec[T] list with surrounding
// whitespace skipped around the separator.
func ParseSpecList[T any](s *charstream.Stream, parseT parser.Func[T]) parser.Parsed[[]Spec[T]] {
	return parser.ListOf(s, func(s *charstream.Stream) parser.Parsed[Spec[T]] {
		return ParseSpec(s, parseT)
	}, tokens.DefaultSeparator, listLimit)
}

const listLimit = 1024
