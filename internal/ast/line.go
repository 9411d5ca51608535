package ast

import (
	"strings"

	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// LineKind distinguishes the four things one logical line of a policy file
// can be.
type LineKind int

const (
	PermissionLine LineKind = iota
	DirectiveLine
	IncludeLine
	CommentLine
)

// IncludeKind distinguishes a single-file include from a whole-directory
// include.
type IncludeKind int

const (
	IncludeFile IncludeKind = iota
	IncludeDir
)

// Include is one "@include"/"@includedir" (or legacy "#include"/
// "#includedir") line.
type Include struct {
	Kind IncludeKind
	Path string
}

// Line is one logical line of a policy file: a permission spec, an alias
// or Defaults directive, an include, or a comment (blank lines are
// represented as a CommentLine with an empty Comment).
type Line struct {
	Kind       LineKind
	Permission *PermissionSpec
	Directive  *Directive
	Include    *Include
	Comment    string
}

// ParseLine parses one logical line, including its terminating newline if
// present. Callers must join backslash-newline continuations before
// constructing the stream handed to this function — the lexer here sees
// only fully joined logical lines.
func ParseLine(s *charstream.Stream) parser.Parsed[Line] {
	skipSpaces(s)

	r, ok := s.Peek()
	if !ok {
		return parser.Ok(Line{Kind: CommentLine})
	}
	if r == '\n' {
		s.Advance()
		return parser.Ok(Line{Kind: CommentLine})
	}

	switch r {
	case '#':
		return parseHashLine(s)
	case '@':
		return parseAtInclude(s)
	}

	directive := parser.Try(s, ParseDirective)
	if directive.Status == parser.StatusFatal {
		return parser.Fatal[Line](directive.Err.Pos, directive.Err.Message)
	}
	if directive.Status == parser.StatusOK {
		if e := consumeEOL(s); e != nil {
			return parser.Fatal[Line](e.Pos, e.Message)
		}
		return parser.Ok(Line{Kind: DirectiveLine, Directive: &directive.Value})
	}

	spec := parser.Expect(s, ParsePermissionSpec, "unrecognized line")
	if spec.Status == parser.StatusFatal {
		return parser.Fatal[Line](spec.Err.Pos, spec.Err.Message)
	}
	if e := consumeEOL(s); e != nil {
		return parser.Fatal[Line](e.Pos, e.Message)
	}
	return parser.Ok(Line{Kind: PermissionLine, Permission: &spec.Value})
}

// parseHashLine resolves the classic sudoers ambiguity: '#' followed by
// digits is a numeric user id starting a permission spec; '#include' /
// '#includedir' is a legacy include; anything else is a whole-line comment.
func parseHashLine(s *charstream.Stream) parser.Parsed[Line] {
	mark := s.Mark()
	s.Advance() // consume '#'

	if next, ok := s.Peek(); ok && next >= '0' && next <= '9' {
		s.Reset(mark)
		spec := parser.Expect(s, ParsePermissionSpec, "expected numeric user permission spec")
		if spec.Status == parser.StatusFatal {
			return parser.Fatal[Line](spec.Err.Pos, spec.Err.Message)
		}
		if e := consumeEOL(s); e != nil {
			return parser.Fatal[Line](e.Pos, e.Message)
		}
		return parser.Ok(Line{Kind: PermissionLine, Permission: &spec.Value})
	}

	if tryWord(s, "includedir") {
		return finishInclude(s, IncludeDir)
	}
	if tryWord(s, "include") {
		return finishInclude(s, IncludeFile)
	}

	s.Reset(mark)
	return parser.Ok(Line{Kind: CommentLine, Comment: scanCommentBody(s)})
}

// parseAtInclude handles the "@include"/"@includedir" forms, the only
// meaning '@' has at the start of a line.
func parseAtInclude(s *charstream.Stream) parser.Parsed[Line] {
	s.Advance() // consume '@'
	if tryWord(s, "includedir") {
		return finishInclude(s, IncludeDir)
	}
	if tryWord(s, "include") {
		return finishInclude(s, IncludeFile)
	}
	return parser.Fatal[Line](s.Position(), "expected 'include' or 'includedir' after '@'")
}

func finishInclude(s *charstream.Stream, kind IncludeKind) parser.Parsed[Line] {
	skipSpaces(s)
	path, err := parseIncludeTarget(s)
	if err != nil {
		return parser.Fatal[Line](err.Pos, err.Message)
	}
	if e := consumeEOL(s); e != nil {
		return parser.Fatal[Line](e.Pos, e.Message)
	}
	return parser.Ok(Line{Kind: IncludeLine, Include: &Include{Kind: kind, Path: path}})
}

func parseIncludeTarget(s *charstream.Stream) (string, *parser.Error) {
	if next, ok := s.Peek(); ok && next == '"' {
		s.Advance()
		text := parser.Expect(s, tokens.ParseQuotedText, "unterminated include path")
		if text.Status == parser.StatusFatal {
			return "", text.Err
		}
		if parser.AcceptLiteral(s, '"').Status != parser.StatusOK {
			return "", &parser.Error{Pos: s.Position(), Message: "unterminated include path"}
		}
		return string(text.Value), nil
	}
	path := parser.Expect(s, tokens.ParseIncludePath, "expected include path")
	if path.Status == parser.StatusFatal {
		return "", path.Err
	}
	return string(path.Value), nil
}

// scanCommentBody returns the remainder of the line (without the newline)
// and then consumes the terminating newline, if any, via consumeEOL.
func scanCommentBody(s *charstream.Stream) string {
	var sb strings.Builder
	for {
		r, ok := s.Peek()
		if !ok || r == '\n' {
			break
		}
		s.Advance()
		sb.WriteRune(r)
	}
	if e := consumeEOL(s); e != nil {
		// Comments always reach end of input or a newline; nothing left to do.
		_ = e
	}
	return sb.String()
}

// consumeEOL skips trailing spaces/tabs then requires a newline or EOF.
func consumeEOL(s *charstream.Stream) *parser.Error {
	skipSpaces(s)
	r, ok := s.Peek()
	if !ok {
		return nil
	}
	if r == '\n' {
		s.Advance()
		return nil
	}
	return &parser.Error{Pos: s.Position(), Message: "unexpected trailing input"}
}
