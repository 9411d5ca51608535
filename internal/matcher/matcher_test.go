package matcher

import (
	"fmt"
	"testing"

	"github.com/sudoersgo/policyengine/internal/sudoers"
)

type mapOpener map[string][]byte

func (m mapOpener) Open(path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return data, nil
}

func (m mapOpener) ReadDir(path string) ([]string, error) {
	return nil, fmt.Errorf("directory includes not used in this test")
}

func loadPolicy(t *testing.T, text string) *sudoers.Policy {
	t.Helper()
	opener := mapOpener{"/etc/sudoers": []byte(text)}
	p, diags := sudoers.Load("/etc/sudoers", opener, opener)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics loading policy: %v", diags)
	}
	return p
}

type fakeUser struct {
	name   string
	uid    int
	groups map[string]bool
	gids   map[int]bool
	root   bool
}

func (u *fakeUser) HasName(n string) bool      { return u.name == n }
func (u *fakeUser) HasUID(id int) bool         { return u.uid == id }
func (u *fakeUser) InGroupByName(n string) bool { return u.groups[n] }
func (u *fakeUser) InGroupByGID(g int) bool    { return u.gids[g] }
func (u *fakeUser) IsRoot() bool               { return u.root }
func (u *fakeUser) UID() int                   { return u.uid }

type fakeGroup struct {
	gid     int
	name    string
	hasName bool
}

func (g *fakeGroup) GID() int            { return g.gid }
func (g *fakeGroup) Name() (string, bool) { return g.name, g.hasName }

var rootUser = &fakeUser{name: "root", uid: 0, root: true, groups: map[string]bool{"root": true}, gids: map[int]bool{0: true}}
var rootGroup = &fakeGroup{gid: 0, name: "root", hasName: true}

func TestCheck_Scenario1_BasicAllowRequiresPassword(t *testing.T) {
	p := loadPolicy(t, "user ALL=(ALL:ALL) /bin/foo\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	v := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !v.Allow {
		t.Fatalf("expected allow")
	}
	if !v.Tag.RequiresPassword {
		t.Errorf("expected requires_password = true")
	}
}

func TestCheck_Scenario2_LaterPasswdWinsOverNopasswd(t *testing.T) {
	p := loadPolicy(t, "user ALL=(ALL:ALL) NOPASSWD: PASSWD: /bin/foo\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	v := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !v.Allow || !v.Tag.RequiresPassword {
		t.Fatalf("expected allow with requires_password = true, got %+v", v)
	}
}

func TestCheck_Scenario3_StickyTagCarriesToLaterCommand(t *testing.T) {
	p := loadPolicy(t, "user ALL=(ALL:ALL) /bin/foo, NOPASSWD: /bin/bar\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	v := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/bar", CommandArguments: "",
	})
	if !v.Allow {
		t.Fatalf("expected allow")
	}
	if v.Tag.RequiresPassword {
		t.Errorf("expected requires_password = false for the sticky NOPASSWD command")
	}
}

func TestCheck_Scenario4_ArgumentGlob(t *testing.T) {
	p := loadPolicy(t, "user ALL=/bin/hello a*g\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	allow := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/hello", CommandArguments: "aaaarg",
	})
	if !allow.Allow {
		t.Errorf("expected allow for matching argument glob")
	}

	deny := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/hello", CommandArguments: "boo",
	})
	if deny.Allow {
		t.Errorf("expected deny for non-matching argument glob")
	}
}

func TestCheck_Scenario5_AliasNegationExcludesMember(t *testing.T) {
	p := loadPolicy(t, "User_Alias FULLTIME=ALL,!marc\nFULLTIME ALL=ALL\n")

	user := &fakeUser{name: "user", uid: 1000}
	allow := Check(p, Request{
		Invoker: user, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !allow.Allow {
		t.Errorf("expected allow for a FULLTIME member")
	}

	marc := &fakeUser{name: "marc", uid: 1001}
	deny := Check(p, Request{
		Invoker: marc, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if deny.Allow {
		t.Errorf("expected deny for marc, excluded by !marc")
	}
}

func TestCheck_Scenario6_RunasAlias(t *testing.T) {
	p := loadPolicy(t, "Runas_Alias TIME=%wheel,sudo\nuser ALL=(TIME) ALL\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	sudoUser := &fakeUser{name: "sudo", uid: 1002, groups: map[string]bool{"sudo": true}, gids: map[int]bool{200: true}}
	sudoGroup := &fakeGroup{gid: 200, name: "sudo", hasName: true}
	allow := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: sudoUser, TargetGroup: sudoGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !allow.Allow {
		t.Errorf("expected allow for a TIME member run-as target")
	}

	otherUser := &fakeUser{name: "other", uid: 1003}
	wheelGroup := &fakeGroup{gid: 10, name: "wheel", hasName: true}
	deny := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: otherUser, TargetGroup: wheelGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if deny.Allow {
		t.Errorf("expected deny: target user is not a TIME member")
	}
}

func TestCheck_NoRunAsDefaultsToRootTarget(t *testing.T) {
	p := loadPolicy(t, "user ALL=/bin/foo\n")
	invoker := &fakeUser{name: "user", uid: 1000}

	nonRootTarget := &fakeUser{name: "alice", uid: 1004}
	nonRootGroup := &fakeGroup{gid: 500, name: "alice", hasName: true}
	deny := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: nonRootTarget, TargetGroup: nonRootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if deny.Allow {
		t.Errorf("expected deny: no RunAs clause implicitly requires a root target")
	}
}

func TestCheck_RootInvokerExemptFromPassword(t *testing.T) {
	p := loadPolicy(t, "root ALL=(ALL:ALL) PASSWD: /bin/foo\n")
	v := Check(p, Request{
		Invoker: rootUser, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !v.Allow {
		t.Fatalf("expected allow")
	}
	if v.Tag.RequiresPassword {
		t.Errorf("root invoker should be exempt from requires_password")
	}
}

func TestCheck_DenyWhenNothingMatches(t *testing.T) {
	p := loadPolicy(t, "user ALL=/bin/foo\n")
	invoker := &fakeUser{name: "user", uid: 1000}
	v := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: rootUser, TargetGroup: rootGroup,
		CommandPath: "/bin/bar", CommandArguments: "",
	})
	if v.Allow {
		t.Errorf("expected deny for a command not covered by any rule")
	}
}

// TestCheck_SelfTargetComparedByUIDNotPointer guards against comparing
// Invoker/TargetUser by interface value: a real CLI path resolves the
// invoker and the target independently (two separate capability.LookupUser
// calls for the same account), so it must never see two distinct handle
// pointers for the same uid as "different users".
func TestCheck_SelfTargetComparedByUIDNotPointer(t *testing.T) {
	p := loadPolicy(t, "alice ALL=(alice) PASSWD: /bin/foo\n")
	invokerHandle := &fakeUser{name: "alice", uid: 1005, groups: map[string]bool{"alice": true}, gids: map[int]bool{1005: true}}
	targetHandle := &fakeUser{name: "alice", uid: 1005, groups: map[string]bool{"alice": true}, gids: map[int]bool{1005: true}}
	targetGroup := &fakeGroup{gid: 1005, name: "alice", hasName: true}

	v := Check(p, Request{
		Invoker: invokerHandle, Host: "server",
		TargetUser: targetHandle, TargetGroup: targetGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !v.Allow {
		t.Fatalf("expected allow: alice targeting herself via (alice)")
	}
	if v.Tag.RequiresPassword {
		t.Errorf("expected requires_password = false: distinct handles for the same uid must compare equal")
	}
}

// TestCheck_EmptyRunAsUserListSatisfiedBySelfTarget exercises spec.md
// §4.8 step 3's empty-user-list default through two distinct handles for
// the same account, the same way the CLI resolves invoker and target.
func TestCheck_EmptyRunAsUserListSatisfiedBySelfTarget(t *testing.T) {
	p := loadPolicy(t, "bob ALL=(:wheel) ALL\n")
	invokerHandle := &fakeUser{name: "bob", uid: 2000}
	sameTarget := &fakeUser{name: "bob", uid: 2000, groups: map[string]bool{"wheel": true}, gids: map[int]bool{20: true}}
	wheelGroup := &fakeGroup{gid: 20, name: "wheel", hasName: true}

	allow := Check(p, Request{
		Invoker: invokerHandle, Host: "server",
		TargetUser: sameTarget, TargetGroup: wheelGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if !allow.Allow {
		t.Errorf("expected allow: empty run-as user list defaults to the invoker as target")
	}

	otherTarget := &fakeUser{name: "carol", uid: 2001, groups: map[string]bool{"wheel": true}, gids: map[int]bool{20: true}}
	deny := Check(p, Request{
		Invoker: invokerHandle, Host: "server",
		TargetUser: otherTarget, TargetGroup: wheelGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if deny.Allow {
		t.Errorf("expected deny: empty run-as user list excludes a non-self target")
	}
}

// TestCheck_NonunixGroupInRunasAliasNeverMatches covers spec.md §9: a
// "%:name" non-UNIX group inside a Runas_Alias body has no local group
// provider to resolve against and must never match, regardless of the
// target's own group membership.
func TestCheck_NonunixGroupInRunasAliasNeverMatches(t *testing.T) {
	opener := mapOpener{"/etc/sudoers": []byte("Runas_Alias G=%:nonunix\nuser ALL=(G) ALL\n")}
	p, diags := sudoers.Load("/etc/sudoers", opener, opener)
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for the non-UNIX group in the Runas_Alias body")
	}

	invoker := &fakeUser{name: "user", uid: 1000}
	target := &fakeUser{name: "nonunix", uid: 3000, groups: map[string]bool{"nonunix": true}}
	targetGroup := &fakeGroup{gid: 3000, name: "nonunix", hasName: true}

	v := Check(p, Request{
		Invoker: invoker, Host: "server",
		TargetUser: target, TargetGroup: targetGroup,
		CommandPath: "/bin/foo", CommandArguments: "",
	})
	if v.Allow {
		t.Errorf("expected deny: a non-UNIX group reference must never match")
	}
}
