// Package tokens implements the lexical atoms of the sudoers grammar:
// usernames, alias identifiers, integers, hex digests, hostnames,
// command globs, quoted strings, and environment variable names. Each
// token enforces its own character class and is built from the parser
// combinator primitives.
package tokens

import (
	"strconv"
	"strings"

	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultSeparator is the separator most qualified lists use unless a
// token declares its own (comma, per spec.md §4.3).
const DefaultSeparator = ','

func isAsciiLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isAsciiUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isAsciiDigit(r rune) bool { return r >= '0' && r <= '9' }
func isHexDigit(r rune) bool {
	return isAsciiDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func scanWhile(s *charstream.Stream, keep func(rune) bool) string {
	var sb strings.Builder
	for {
		r, ok := s.Peek()
		if !ok || !keep(r) {
			break
		}
		s.Advance()
		sb.WriteRune(r)
	}
	return sb.String()
}

// Upper is an alias identifier: one upper-case letter followed by
// [A-Z0-9_]*.
type Upper string

func ParseUpper(s *charstream.Stream) parser.Parsed[Upper] {
	first, ok := s.Peek()
	if !ok || !isAsciiUpper(first) {
		return parser.Reject[Upper]()
	}
	s.Advance()
	rest := scanWhile(s, func(r rune) bool {
		return isAsciiUpper(r) || isAsciiDigit(r) || r == '_'
	})
	return parser.Ok(Upper(string(first) + rest))
}

// Username matches [a-z_][a-z0-9_-]* with an optional trailing '$', which
// also covers service/machine account names ending in '$'.
type Username string

func ParseUsername(s *charstream.Stream) parser.Parsed[Username] {
	first, ok := s.Peek()
	if !ok || !(isAsciiLower(first) || first == '_') {
		return parser.Reject[Username]()
	}
	s.Advance()
	rest := scanWhile(s, func(r rune) bool {
		return isAsciiLower(r) || isAsciiDigit(r) || r == '_' || r == '-'
	})
	name := string(first) + rest
	if dollar := parser.AcceptLiteral(s, '$'); dollar.Status == parser.StatusOK {
		name += "$"
	}
	return parser.Ok(Username(name))
}

// Hostname allows the username character class plus '.'.
type Hostname string

// Hostname shares Username's lowercase-leading class (deliberately: an
// upper-case leading letter is reserved for alias identifiers, so the
// grammar can tell "Host_Alias DB = ..." apart from a concrete hostname
// without backtracking).
func ParseHostname(s *charstream.Stream) parser.Parsed[Hostname] {
	first, ok := s.Peek()
	if !ok || !(isAsciiLower(first) || first == '_') {
		return parser.Reject[Hostname]()
	}
	s.Advance()
	rest := scanWhile(s, func(r rune) bool {
		return isAsciiLower(r) || isAsciiDigit(r) || r == '_' || r == '-' || r == '.'
	})
	return parser.Ok(Hostname(string(first) + rest))
}

// Digits is a non-empty run of decimal digits, decoded as an unsigned int.
type Digits uint64

func ParseDigits(s *charstream.Stream) parser.Parsed[Digits] {
	text := scanWhile(s, isAsciiDigit)
	if text == "" {
		return parser.Reject[Digits]()
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return parser.Fatal[Digits](s.Position(), "integer literal out of range")
	}
	return parser.Ok(Digits(n))
}

// HexDigest is the raw hex text of a sha2 digest specification, not yet
// validated against its declared bit-width (the caller, ast.parseDigestSpec,
// knows which algorithm was named).
type HexDigest string

func ParseHexDigest(s *charstream.Stream) parser.Parsed[HexDigest] {
	text := scanWhile(s, isHexDigit)
	if text == "" {
		return parser.Reject[HexDigest]()
	}
	return parser.Ok(HexDigest(text))
}

// QuotedText is the contents of a "..." string, honoring backslash escapes
// of the quote character and of the backslash itself.
type QuotedText string

func ParseQuotedText(s *charstream.Stream) parser.Parsed[QuotedText] {
	var sb strings.Builder
	for {
		r, ok := s.Peek()
		if !ok || r == '"' {
			break
		}
		if r == '\\' {
			s.Advance()
			next, ok := s.Peek()
			if !ok {
				return parser.Fatal[QuotedText](s.Position(), "unterminated quoted string")
			}
			s.Advance()
			sb.WriteRune(next)
			continue
		}
		if r == '\n' {
			return parser.Fatal[QuotedText](s.Position(), "unterminated quoted string")
		}
		s.Advance()
		sb.WriteRune(r)
	}
	return parser.Ok(QuotedText(sb.String()))
}

// IncludePath matches a bare (unquoted) include path: any run of
// non-whitespace characters, with backslash-escaped spaces absorbed.
type IncludePath string

func ParseIncludePath(s *charstream.Stream) parser.Parsed[IncludePath] {
	var sb strings.Builder
	for {
		r, ok := s.Peek()
		if !ok || r == ' ' || r == '\t' || r == '\n' {
			break
		}
		if r == '\\' {
			s.Advance()
			next, ok := s.Peek()
			if ok && (next == ' ' || next == '\t') {
				s.Advance()
				sb.WriteRune(next)
				continue
			}
			sb.WriteRune('\\')
			continue
		}
		s.Advance()
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return parser.Reject[IncludePath]()
	}
	return parser.Ok(IncludePath(sb.String()))
}

// EnvVar matches an environment-variable-style name: letters, digits,
// underscore, and '*' (the defaults lists use glob-style entries such as
// "LC_*" and "_RLD*").
type EnvVar string

func ParseEnvVar(s *charstream.Stream) parser.Parsed[EnvVar] {
	text := scanWhile(s, func(r rune) bool {
		return isAsciiLower(r) || isAsciiUpper(r) || isAsciiDigit(r) || r == '_' || r == '*'
	})
	if text == "" {
		return parser.Reject[EnvVar]()
	}
	return parser.Ok(EnvVar(text))
}

// StringParameter is an unquoted free-text setting value: a run of
// non-whitespace characters.
type StringParameter string

func ParseStringParameter(s *charstream.Stream) parser.Parsed[StringParameter] {
	text := scanWhile(s, func(r rune) bool {
		return r != ' ' && r != '\t' && r != '\n'
	})
	if text == "" {
		return parser.Reject[StringParameter]()
	}
	return parser.Ok(StringParameter(text))
}

// Command is a path-glob followed by an argument-glob. "" (an empty quoted
// string) denotes "no arguments"; absence of an argument clause means "any
// arguments".
type Command struct {
	PathGlob string
	// ArgsGlob is nil when no argument clause was given ("any arguments"),
	// non-nil-empty when the command must be invoked with no arguments.
	ArgsGlob    *string
	HasArgsGlob bool
}

func ParseCommand(s *charstream.Stream) parser.Parsed[Command] {
	pathFirst, ok := s.Peek()
	if !ok || pathFirst != '/' {
		// "ALL" and alias names are handled one level up by Meta[Command];
		// a bare command must be an absolute path glob.
		return parser.Reject[Command]()
	}
	path := scanWhile(s, func(r rune) bool {
		return r != ' ' && r != '\t' && r != '\n' && r != ',' && r != ':'
	})

	cmd := Command{PathGlob: path}

	mark := s.Mark()
	skipped := scanWhile(s, func(r rune) bool { return r == ' ' || r == '\t' })
	if skipped == "" {
		return parser.Ok(cmd)
	}

	next, ok := s.Peek()
	if !ok || next == ',' || next == ':' {
		s.Reset(mark)
		return parser.Ok(cmd)
	}

	if next == '"' {
		s.Advance()
		quoted := parser.Expect(s, ParseQuotedText, "unterminated argument string")
		if quoted.Status == parser.StatusFatal {
			return parser.Fatal[Command](quoted.Err.Pos, quoted.Err.Message)
		}
		if parser.AcceptLiteral(s, '"').Status != parser.StatusOK {
			return parser.Fatal[Command](s.Position(), "unterminated argument string")
		}
		args := string(quoted.Value)
		cmd.ArgsGlob = &args
		cmd.HasArgsGlob = true
		return parser.Ok(cmd)
	}

	args := scanArgsGlob(s)
	if args == "" {
		s.Reset(mark)
		return parser.Ok(cmd)
	}
	cmd.ArgsGlob = &args
	cmd.HasArgsGlob = true
	return parser.Ok(cmd)
}

// scanArgsGlob reads the remainder of the command's argument glob up to
// the line/list delimiters, flattening shell-style quoting the same way
// the teacher's structural shell analyzer flattens a parsed word into a
// plain string (see flattenWords below).
func scanArgsGlob(s *charstream.Stream) string {
	raw := scanWhile(s, func(r rune) bool {
		return r != '\n' && r != ','
	})
	raw = strings.TrimRight(raw, " \t")
	if raw == "" {
		return ""
	}
	return flattenWords(raw)
}

// flattenWords re-parses a shell-quoted argument string into its
// constituent words, the same way the teacher's structural shell analyzer
// turns a syntax.Word back into text (syntax.NewParser + syntax.NewPrinter),
// so a quoted run of words like `"two words"` stays one glob token and
// whitespace between top-level words is normalized to a single space.
func flattenWords(raw string) string {
	sp := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := sp.Parse(strings.NewReader(raw), "")
	if err != nil || len(file.Stmts) == 0 {
		return raw
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) == 0 {
		return raw
	}

	printer := syntax.NewPrinter()
	words := make([]string, 0, len(call.Args))
	for _, w := range call.Args {
		var sb strings.Builder
		if err := printer.Print(&sb, w); err != nil {
			return raw
		}
		words = append(words, sb.String())
	}
	return strings.Join(words, " ")
}
