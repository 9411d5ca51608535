package ast

import (
	"encoding/hex"
	"fmt"

	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// ChDir is the working-directory constraint a CWD tag attaches.
type ChDir struct {
	Wildcard bool
	Path     string
}

// Tag accumulates execution attributes over a command-spec line.
type Tag struct {
	RequiresPassword bool
	WorkingDirectory *ChDir
}

// DefaultTag is the attribute state a line starts with before any tag
// keyword has been seen.
func DefaultTag() Tag {
	return Tag{RequiresPassword: true}
}

// Digest is the optional cryptographic constraint on the resolved binary.
type Digest struct {
	Empty bool
	Bits  int
	Bytes []byte
}

var noDigest = Digest{Empty: true}

// CommandSpec is one command entry carrying the tag snapshot active at its
// position and its optional digest.
type CommandSpec struct {
	Tag     Tag
	Command Spec[tokens.Command]
	Digest  Digest
}

const tagLimit = 16

// protoCommandSpec is one comma-separated item of a cmdspeclist before tag
// folding: the Modifiers mutate a running Tag, to be applied left to right.
type protoCommandSpec struct {
	Modifiers []func(*Tag)
	Command   Spec[tokens.Command]
	Digest    Digest
}

// grammar: cmdspec = { tag } [ digestspec ] qualified(command)
// tag keywords (NOPASSWD:/PASSWD:/CWD=) are tried first since they are
// lexically indistinguishable from ALL/an alias name until the colon (or
// equals) is reached — all three are Upper tokens.
func parseProtoCommandSpec(s *charstream.Stream) parser.Parsed[protoCommandSpec] {
	var mods []func(*Tag)

	for {
		mark := s.Mark()
		upper := parser.Try(s, tokens.ParseUpper)
		if upper.Status == parser.StatusFatal {
			return parser.Fatal[protoCommandSpec](upper.Err.Pos, upper.Err.Message)
		}
		if upper.Status != parser.StatusOK {
			s.Reset(mark)
			break
		}

		switch string(upper.Value) {
		case "PASSWD":
			if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
				return parser.AcceptLiteral(s, ':')
			}, "expected ':' after PASSWD"); e.Status == parser.StatusFatal {
				return parser.Fatal[protoCommandSpec](e.Err.Pos, e.Err.Message)
			}
			mods = append(mods, func(t *Tag) { t.RequiresPassword = true })
		case "NOPASSWD":
			if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
				return parser.AcceptLiteral(s, ':')
			}, "expected ':' after NOPASSWD"); e.Status == parser.StatusFatal {
				return parser.Fatal[protoCommandSpec](e.Err.Pos, e.Err.Message)
			}
			mods = append(mods, func(t *Tag) { t.RequiresPassword = false })
		case "CWD":
			if e := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
				return parser.AcceptLiteral(s, '=')
			}, "expected '=' after CWD"); e.Status == parser.StatusFatal {
				return parser.Fatal[protoCommandSpec](e.Err.Pos, e.Err.Message)
			}
			chdir, status := parseChDir(s)
			if status != nil {
				return parser.Fatal[protoCommandSpec](status.Pos, status.Message)
			}
			mods = append(mods, func(t *Tag) { cd := chdir; t.WorkingDirectory = &cd })
		case "ALL":
			return parser.Ok(protoCommandSpec{Modifiers: mods, Command: Allow(All[tokens.Command]()), Digest: noDigest})
		default:
			return parser.Ok(protoCommandSpec{Modifiers: mods, Command: Allow(AliasRef[tokens.Command](string(upper.Value))), Digest: noDigest})
		}
		skipSpaces(s)

		if len(mods) > tagLimit {
			return parser.Fatal[protoCommandSpec](s.Position(), "too many tags for command specifier")
		}
	}

	digest, derr := parseDigestSpec(s)
	if derr != nil {
		return parser.Fatal[protoCommandSpec](derr.Pos, derr.Message)
	}
	skipSpaces(s)

	cmd := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[Spec[tokens.Command]] {
		return ParseSpec(s, tokens.ParseCommand)
	}, "expected command")
	if cmd.Status == parser.StatusFatal {
		return parser.Fatal[protoCommandSpec](cmd.Err.Pos, cmd.Err.Message)
	}

	return parser.Ok(protoCommandSpec{Modifiers: mods, Command: cmd.Value, Digest: digest})
}

func parseChDir(s *charstream.Stream) (ChDir, *parser.Error) {
	if parser.AcceptLiteral(s, '*').Status == parser.StatusOK {
		return ChDir{Wildcard: true}, nil
	}
	var path string
	for {
		r, ok := s.Peek()
		if !ok || r == ' ' || r == '\t' || r == '\n' || r == ',' {
			break
		}
		s.Advance()
		path += string(r)
	}
	if path == "" {
		return ChDir{}, &parser.Error{Pos: s.Position(), Message: "expected a path or '*' after CWD="}
	}
	return ChDir{Path: path}, nil
}

var digestBits = map[string]int{
	"sha224": 224,
	"sha256": 256,
	"sha384": 384,
	"sha512": 512,
}

func parseDigestSpec(s *charstream.Stream) (Digest, *parser.Error) {
	mark := s.Mark()
	kw := parser.Try(s, tokens.ParseUsername)
	if kw.Status == parser.StatusFatal {
		return Digest{}, kw.Err
	}
	if kw.Status != parser.StatusOK {
		return noDigest, nil
	}

	name := string(kw.Value)
	bits, known := digestBits[name]
	if !known {
		if name == "sudoedit" {
			// Reserved: sudoedit digests have unimplemented, deferred
			// semantics around forward slashes in wildcards (spec.md §9).
			return Digest{}, &parser.Error{Pos: s.Position(), Message: "sudoedit digests are not supported"}
		}
		s.Reset(mark)
		return noDigest, nil
	}

	if colon := parser.Expect(s, func(s *charstream.Stream) parser.Parsed[rune] {
		return parser.AcceptLiteral(s, ':')
	}, "expected ':' after digest algorithm"); colon.Status == parser.StatusFatal {
		return Digest{}, colon.Err
	}

	hexDigits := parser.Expect(s, tokens.ParseHexDigest, "expected hex digest")
	if hexDigits.Status == parser.StatusFatal {
		return Digest{}, hexDigits.Err
	}

	if len(hexDigits.Value)*4 != bits {
		return Digest{}, &parser.Error{Pos: s.Position(), Message: fmt.Sprintf("digest length incorrect for sha%d", bits)}
	}

	decoded, err := hex.DecodeString(string(hexDigits.Value))
	if err != nil {
		return Digest{}, &parser.Error{Pos: s.Position(), Message: "invalid hex digest"}
	}

	return Digest{Bits: bits, Bytes: decoded}, nil
}

// ParseCommandSpecList parses a comma-separated cmdspeclist, folding
// sticky tags left to right: each emitted CommandSpec captures a snapshot
// (by value) of the accumulated Tag at its position.
func ParseCommandSpecList(s *charstream.Stream) parser.Parsed[[]CommandSpec] {
	protos := parser.ListOf(s, parseProtoCommandSpec, ',', listLimit)
	if protos.Status != parser.StatusOK {
		return parser.Parsed[[]CommandSpec]{Status: protos.Status, Err: protos.Err}
	}

	tag := DefaultTag()
	specs := make([]CommandSpec, 0, len(protos.Value))
	for _, p := range protos.Value {
		for _, f := range p.Modifiers {
			f(&tag)
		}
		specs = append(specs, CommandSpec{Tag: tag, Command: p.Command, Digest: p.Digest})
	}
	return parser.Ok(specs)
}
