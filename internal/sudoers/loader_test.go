package sudoers

import (
	"fmt"
	"testing"
)

type fakeFS struct {
	files map[string]string
	dirs  map[string][]string
}

func (f fakeFS) Open(path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(data), nil
}

func (f fakeFS) ReadDir(path string) ([]string, error) {
	names, ok := f.dirs[path]
	if !ok {
		return nil, fmt.Errorf("no such directory: %s", path)
	}
	return names, nil
}

func TestLoad_SingleFileNoIncludes(t *testing.T) {
	fs := fakeFS{files: map[string]string{
		"/etc/sudoers": "user ALL=ALL\n",
	}}
	p, diags := Load("/etc/sudoers", fs, fs)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(p.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(p.Rules))
	}
}

func TestLoad_FileInclude(t *testing.T) {
	fs := fakeFS{files: map[string]string{
		"/etc/sudoers":            "@include /etc/sudoers.d/extra\nroot ALL=ALL\n",
		"/etc/sudoers.d/extra": "user ALL=ALL\n",
	}}
	p, diags := Load("/etc/sudoers", fs, fs)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules across the include, got %d", len(p.Rules))
	}
}

func TestLoad_DirectoryIncludeFiltersAndSorts(t *testing.T) {
	fs := fakeFS{
		files: map[string]string{
			"/etc/sudoers":                "@includedir /etc/sudoers.d\n",
			"/etc/sudoers.d/10-first":  "first ALL=ALL\n",
			"/etc/sudoers.d/20-second": "second ALL=ALL\n",
			"/etc/sudoers.d/ignored~":  "ghost ALL=ALL\n",
			"/etc/sudoers.d/README.md": "notused ALL=ALL\n",
		},
		dirs: map[string][]string{
			"/etc/sudoers.d": {"20-second", "ignored~", "10-first", "README.md"},
		},
	}
	p, diags := Load("/etc/sudoers", fs, fs)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules (README.md and the ~ backup excluded), got %d", len(p.Rules))
	}
}

func TestLoad_IncludeDepthLimitStopsCycle(t *testing.T) {
	fs := fakeFS{files: map[string]string{
		"/etc/sudoers": "@include /etc/sudoers\n",
	}}
	p, diags := Load("/etc/sudoers", fs, fs)
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic once the include depth limit is hit")
	}
	if len(p.Rules) != 0 {
		t.Errorf("expected no rules from a pure include cycle, got %d", len(p.Rules))
	}
}

func TestLoadWithDepth_HonorsCallerLimit(t *testing.T) {
	fs := fakeFS{files: map[string]string{
		"/etc/sudoers": "@include /etc/more\n",
		"/etc/more":    "user ALL=ALL\n",
	}}
	p, diags := LoadWithDepth("/etc/sudoers", fs, fs, 0)
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic: depth 0 should refuse the nested include")
	}
	if len(p.Rules) != 0 {
		t.Errorf("expected no rules to have loaded past the depth limit, got %d", len(p.Rules))
	}
}
