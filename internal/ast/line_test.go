package ast

import (
	"testing"

	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/parser"
)

func TestParseLine_PermissionSpec(t *testing.T) {
	s := charstream.New("user ALL=(ALL:ALL) /bin/foo\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != PermissionLine {
		t.Fatalf("expected PermissionLine, got %v", got.Value.Kind)
	}
	if len(got.Value.Permission.Users) != 1 {
		t.Errorf("expected one user, got %d", len(got.Value.Permission.Users))
	}
}

func TestParseLine_NumericUserIDStartsPermissionSpec(t *testing.T) {
	s := charstream.New("#1000 ALL=ALL\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != PermissionLine {
		t.Fatalf("expected a numeric '#1000' to parse as a permission spec, got %v", got.Value.Kind)
	}
}

func TestParseLine_HashCommentIsNotNumeric(t *testing.T) {
	s := charstream.New("# just a comment\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != CommentLine {
		t.Fatalf("expected CommentLine, got %v", got.Value.Kind)
	}
}

func TestParseLine_LegacyHashInclude(t *testing.T) {
	s := charstream.New("#include /etc/sudoers.d/extra\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != IncludeLine {
		t.Fatalf("expected IncludeLine, got %v", got.Value.Kind)
	}
	if got.Value.Include.Kind != IncludeFile {
		t.Errorf("expected IncludeFile")
	}
	if got.Value.Include.Path != "/etc/sudoers.d/extra" {
		t.Errorf("unexpected path %q", got.Value.Include.Path)
	}
}

func TestParseLine_AtIncludeDir(t *testing.T) {
	s := charstream.New("@includedir /etc/sudoers.d\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != IncludeLine || got.Value.Include.Kind != IncludeDir {
		t.Fatalf("expected an IncludeDir line, got %+v", got.Value)
	}
}

func TestParseLine_DirectiveLine(t *testing.T) {
	s := charstream.New("Defaults env_reset\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK {
		t.Fatalf("expected OK, got status %v err %v", got.Status, got.Err)
	}
	if got.Value.Kind != DirectiveLine {
		t.Fatalf("expected DirectiveLine, got %v", got.Value.Kind)
	}
}

func TestParseLine_TrailingGarbageIsFatal(t *testing.T) {
	s := charstream.New("user ALL=ALL garbage\n")
	got := ParseLine(s)
	if got.Status != parser.StatusFatal {
		t.Fatalf("expected Fatal for trailing input, got status %v", got.Status)
	}
}

func TestParseLine_DigestLengthMismatchIsFatal(t *testing.T) {
	s := charstream.New("user ALL=sha256:deadbeef /bin/foo\n")
	got := ParseLine(s)
	if got.Status != parser.StatusFatal {
		t.Fatalf("expected Fatal for a sha256 digest with the wrong hex length, got status %v", got.Status)
	}
}

func TestParseLine_BlankLineIsComment(t *testing.T) {
	s := charstream.New("\n")
	got := ParseLine(s)
	if got.Status != parser.StatusOK || got.Value.Kind != CommentLine {
		t.Fatalf("expected a blank line to parse as an empty CommentLine, got %+v", got)
	}
}
