package facade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sudoersgo/policyengine/internal/matcher"
)

type fakeUser struct {
	name string
	uid  int
	root bool
}

func (u *fakeUser) HasName(n string) bool       { return u.name == n }
func (u *fakeUser) HasUID(id int) bool          { return u.root && id == 0 }
func (u *fakeUser) InGroupByName(n string) bool { return u.root && n == "root" }
func (u *fakeUser) InGroupByGID(g int) bool     { return u.root && g == 0 }
func (u *fakeUser) IsRoot() bool                { return u.root }
func (u *fakeUser) UID() int {
	if u.root {
		return 0
	}
	return u.uid
}

type fakeGroup struct {
	gid  int
	name string
}

func (g *fakeGroup) GID() int            { return g.gid }
func (g *fakeGroup) Name() (string, bool) { return g.name, true }

func TestLoadFromPath_CheckRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sudoers")
	if err := os.WriteFile(path, []byte("user ALL=(ALL:ALL) /bin/foo\n"), 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	p, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(p.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", p.Diagnostics)
	}
	if p.RuleCount() != 1 {
		t.Errorf("expected 1 rule, got %d", p.RuleCount())
	}

	root := &fakeUser{name: "root", root: true}
	v := p.Check(matcher.Request{
		Invoker:     &fakeUser{name: "user", uid: 1000},
		Host:        "anyhost",
		TargetUser:  root,
		TargetGroup: &fakeGroup{gid: 0, name: "root"},
		CommandPath: "/bin/foo",
	})
	if !v.Allow {
		t.Errorf("expected allow")
	}
}

func TestLoadFromPath_SurfacesDiagnosticsForUndefinedAlias(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sudoers")
	if err := os.WriteFile(path, []byte("FULLTIME ALL=ALL\n"), 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	p, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(p.Diagnostics) == 0 {
		t.Errorf("expected a diagnostic for the undefined alias FULLTIME")
	}
}

func TestEffectiveSettings_ReflectsDefaultsDirective(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sudoers")
	text := "Defaults !env_reset\nuser ALL=ALL\n"
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	p, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if p.EffectiveSettings().Flags["env_reset"] {
		t.Errorf("expected env_reset to be negated to false")
	}
}
