// Package parser provides the combinator primitives used to build the
// recursive-descent sudoers grammar on top of a charstream.Stream. It
// implements the two failure modes a production can have: a recoverable
// "reject" (no input consumed, the caller may try an alternative) and an
// unrecoverable "fatal" error carrying a source position.
package parser

import "github.com/sudoersgo/policyengine/internal/charstream"

// Status classifies the outcome of a parse attempt.
type Status int

const (
	StatusOK Status = iota
	StatusReject
	StatusFatal
)

// Error is a positioned, human-readable parse failure.
type Error struct {
	Pos     charstream.Position
	Message string
}

// Parsed is the uniform result shape returned by every grammar production.
type Parsed[T any] struct {
	Status Status
	Value  T
	Err    *Error
}

// Ok wraps a successfully parsed value.
func Ok[T any](v T) Parsed[T] {
	return Parsed[T]{Status: StatusOK, Value: v}
}

// Reject reports that the production did not apply and consumed nothing.
func Reject[T any]() Parsed[T] {
	return Parsed[T]{Status: StatusReject}
}

// Fatal reports an unrecoverable grammar violation at pos.
func Fatal[T any](pos charstream.Position, message string) Parsed[T] {
	return Parsed[T]{Status: StatusFatal, Err: &Error{Pos: pos, Message: message}}
}

func (p Parsed[T]) IsOK() bool     { return p.Status == StatusOK }
func (p Parsed[T]) IsReject() bool { return p.Status == StatusReject }
func (p Parsed[T]) IsFatal() bool  { return p.Status == StatusFatal }

// Func is the shape every grammar production has: consume from the stream,
// produce a Parsed[T].
type Func[T any] func(s *charstream.Stream) Parsed[T]

// AcceptIf consumes one rune matching predicate. It rejects without
// consuming anything when the predicate fails or the stream is at EOF.
func AcceptIf(s *charstream.Stream, predicate func(rune) bool) Parsed[rune] {
	r, ok := s.Peek()
	if !ok || !predicate(r) {
		return Reject[rune]()
	}
	s.Advance()
	return Ok(r)
}

// AcceptLiteral consumes exactly the rune c, rejecting otherwise.
func AcceptLiteral(s *charstream.Stream, c rune) Parsed[rune] {
	return AcceptIf(s, func(r rune) bool { return r == c })
}

// Try attempts parse; on StatusReject it rewinds the stream to where it
// started so the caller may try an alternative production. A StatusFatal
// result is propagated as-is (input has already been irrevocably consumed).
func Try[T any](s *charstream.Stream, parse Func[T]) Parsed[T] {
	mark := s.Mark()
	result := parse(s)
	if result.Status == StatusReject {
		s.Reset(mark)
	}
	return result
}

// Expect is like Try, but converts a StatusReject into a StatusFatal at the
// stream's current position, carrying msg. Use this once a production has
// become the only possible continuation (e.g. after consuming a keyword
// that commits to a particular grammar rule).
func Expect[T any](s *charstream.Stream, parse Func[T], msg string) Parsed[T] {
	mark := s.Mark()
	result := Try(s, parse)
	if result.Status == StatusReject {
		s.Reset(mark)
		return Fatal[T](s.Position(), msg)
	}
	return result
}

// Maybe turns a StatusReject result into an absent Option (Present false),
// propagating StatusFatal. It never itself rejects.
func Maybe[T any](s *charstream.Stream, parse Func[T]) Parsed[Option[T]] {
	result := Try(s, parse)
	switch result.Status {
	case StatusOK:
		return Ok(Option[T]{Present: true, Value: result.Value})
	case StatusFatal:
		return Fatal[Option[T]](result.Err.Pos, result.Err.Message)
	default:
		return Ok(Option[T]{})
	}
}

// Option is a small presence wrapper, used where the grammar allows a
// production to be entirely absent (e.g. an optional RunAs clause).
type Option[T any] struct {
	Present bool
	Value   T
}

// ListOf parses one-or-more T separated by the literal rune sep, with
// optional spaces/tabs surrounding the separator. It enforces limit on the
// number of items (0 means unlimited).
func ListOf[T any](s *charstream.Stream, item Func[T], sep rune, limit int) Parsed[[]T] {
	first := Try(s, item)
	if first.Status != StatusOK {
		return Parsed[[]T]{Status: first.Status, Err: first.Err}
	}
	items := []T{first.Value}

	for {
		mark := s.Mark()
		skipInlineSpace(s)
		if AcceptLiteral(s, sep).Status != StatusOK {
			s.Reset(mark)
			break
		}
		skipInlineSpace(s)

		next := Expect(s, item, "expected list item after separator")
		if next.Status == StatusFatal {
			return Parsed[[]T]{Status: StatusFatal, Err: next.Err}
		}
		items = append(items, next.Value)

		if limit > 0 && len(items) > limit {
			return Fatal[[]T](s.Position(), "list exceeds maximum length")
		}
	}

	return Ok(items)
}

func skipInlineSpace(s *charstream.Stream) {
	for {
		r, ok := s.Peek()
		if !ok || (r != ' ' && r != '\t') {
			return
		}
		s.Advance()
	}
}
