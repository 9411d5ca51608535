package sudoers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/charstream"
	"github.com/sudoersgo/policyengine/internal/diagnostics"
	"github.com/sudoersgo/policyengine/internal/parser"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

// maxIncludeDepth bounds include recursion; exceeding it prunes the branch
// and emits a diagnostic rather than looping forever on an include cycle.
const maxIncludeDepth = 128

// Opener is the "secure open" contract consumed from the OS layer: the
// core never opens files itself, it only reads the bytes handed to it.
// The production embedding program is expected to reject symlinks under
// attacker-writable directories and verify ownership before calling in.
type Opener interface {
	Open(path string) ([]byte, error)
}

// DirLister lists the entries of a directory include, names only.
type DirLister interface {
	ReadDir(path string) ([]string, error)
}

// OSFiles is the default Opener/DirLister, reading directly from the
// local filesystem. Callers that need the secure-open contract enforced
// should supply their own Opener/DirLister instead.
type OSFiles struct{}

func (OSFiles) Open(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFiles) ReadDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

type rawLoad struct {
	opener   Opener
	lister   DirLister
	bag      *diagnostics.Bag
	maxDepth int

	rules        []ast.PermissionSpec
	userAliases  []AliasDef[ast.UserSpecifier]
	hostAliases  []AliasDef[tokens.Hostname]
	cmndAliases  []AliasDef[tokens.Command]
	runasAliases []AliasDef[ast.UserSpecifier]
	defaults     []ast.DefaultsDirective
}

func (r *rawLoad) loadFile(path string, depth int) {
	if depth > r.maxDepth {
		r.bag.Add(diagnostics.Unpositioned(fmt.Sprintf("include depth limit reached at %s", path)))
		return
	}

	data, err := r.opener.Open(path)
	if err != nil {
		r.bag.Add(diagnostics.Unpositioned(fmt.Sprintf("cannot read %s: %v", path, err)))
		return
	}

	stream := charstream.New(joinContinuations(string(data)))
	for !stream.AtEOF() {
		line := ast.ParseLine(stream)
		if line.Status == parser.StatusFatal {
			r.bag.Add(diagnostics.At(line.Err.Pos, line.Err.Message))
			skipToNextLine(stream)
			continue
		}
		r.consumeLine(line.Value, path, depth)
	}
}

func (r *rawLoad) consumeLine(line ast.Line, path string, depth int) {
	switch line.Kind {
	case ast.PermissionLine:
		r.rules = append(r.rules, *line.Permission)

	case ast.DirectiveLine:
		d := line.Directive
		switch d.Kind {
		case ast.UserAliasDirective:
			r.userAliases = append(r.userAliases, AliasDef[ast.UserSpecifier]{Name: d.UserAlias.Name, Pos: d.UserAlias.Pos, Body: d.UserAlias.Body})
		case ast.HostAliasDirective:
			r.hostAliases = append(r.hostAliases, AliasDef[tokens.Hostname]{Name: d.HostAlias.Name, Pos: d.HostAlias.Pos, Body: d.HostAlias.Body})
		case ast.CmndAliasDirective:
			r.cmndAliases = append(r.cmndAliases, AliasDef[tokens.Command]{Name: d.CmndAlias.Name, Pos: d.CmndAlias.Pos, Body: d.CmndAlias.Body})
		case ast.RunasAliasDirective:
			r.runasAliases = append(r.runasAliases, AliasDef[ast.UserSpecifier]{Name: d.RunasAlias.Name, Pos: d.RunasAlias.Pos, Body: d.RunasAlias.Body})
		case ast.DefaultsKind:
			r.defaults = append(r.defaults, *d.Defaults)
		}

	case ast.IncludeLine:
		r.resolveInclude(*line.Include, path, depth)

	case ast.CommentLine:
		// dropped; comments carry no semantic content for the Policy
	}
}

func (r *rawLoad) resolveInclude(inc ast.Include, fromPath string, depth int) {
	target := inc.Path
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(fromPath), target)
	}

	if inc.Kind == ast.IncludeFile {
		r.loadFile(target, depth+1)
		return
	}

	names, err := r.lister.ReadDir(target)
	if err != nil {
		r.bag.Add(diagnostics.Unpositioned(fmt.Sprintf("cannot list include directory %s: %v", target, err)))
		return
	}
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasSuffix(name, "~") || strings.Contains(name, ".") {
			continue
		}
		filtered = append(filtered, name)
	}
	sort.Strings(filtered)
	for _, name := range filtered {
		r.loadFile(filepath.Join(target, name), depth+1)
	}
}

// joinContinuations splices a backslash immediately followed by a newline
// into a single space, so the line-oriented grammar in ast.ParseLine never
// has to special-case continuations itself.
func joinContinuations(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) && runes[i+1] == '\n' {
			sb.WriteByte(' ')
			i++
			continue
		}
		sb.WriteRune(runes[i])
	}
	return sb.String()
}

// skipToNextLine discards input up to and including the next newline, so
// loading can resume after a hard parse error on the following line.
func skipToNextLine(s *charstream.Stream) {
	for {
		r, ok := s.Peek()
		if !ok {
			return
		}
		s.Advance()
		if r == '\n' {
			return
		}
	}
}
