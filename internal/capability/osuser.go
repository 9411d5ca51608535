package capability

import (
	"os/user"
	"strconv"
)

// OSUser adapts os/user to UserHandle. Group membership is resolved once,
// when the handle is created, and cached for the lifetime of the handle.
type OSUser struct {
	u       *user.User
	gidSet  map[string]struct{}
	nameSet map[string]struct{}
}

// LookupUser resolves name to an OSUser, loading its group memberships.
func LookupUser(name string) (*OSUser, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return nil, err
	}
	return newOSUser(u)
}

// LookupUserID resolves a numeric uid to an OSUser.
func LookupUserID(uid int) (*OSUser, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return nil, err
	}
	return newOSUser(u)
}

func newOSUser(u *user.User) (*OSUser, error) {
	gids, err := u.GroupIds()
	if err != nil {
		return nil, err
	}
	gidSet := make(map[string]struct{}, len(gids))
	nameSet := make(map[string]struct{}, len(gids))
	for _, gid := range gids {
		gidSet[gid] = struct{}{}
		if g, err := user.LookupGroupId(gid); err == nil {
			nameSet[g.Name] = struct{}{}
		}
	}
	return &OSUser{u: u, gidSet: gidSet, nameSet: nameSet}, nil
}

func (o *OSUser) HasName(name string) bool { return o.u.Username == name }

func (o *OSUser) HasUID(uid int) bool {
	want := strconv.Itoa(uid)
	return o.u.Uid == want
}

func (o *OSUser) InGroupByName(name string) bool {
	_, ok := o.nameSet[name]
	return ok
}

func (o *OSUser) InGroupByGID(gid int) bool {
	_, ok := o.gidSet[strconv.Itoa(gid)]
	return ok
}

func (o *OSUser) IsRoot() bool { return o.u.Uid == "0" }

// UID returns the account's numeric uid, or -1 if it can't be parsed.
func (o *OSUser) UID() int {
	n, err := strconv.Atoi(o.u.Uid)
	if err != nil {
		return -1
	}
	return n
}

// PrimaryGID returns u's primary group id, for callers that need the
// default target group when none was specified explicitly.
func PrimaryGID(u *OSUser) int {
	n, err := strconv.Atoi(u.u.Gid)
	if err != nil {
		return -1
	}
	return n
}

// OSGroup adapts os/user.Group to GroupHandle.
type OSGroup struct {
	g *user.Group
}

// LookupGroup resolves name to an OSGroup.
func LookupGroup(name string) (*OSGroup, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return nil, err
	}
	return &OSGroup{g: g}, nil
}

// LookupGroupID resolves a numeric gid to an OSGroup.
func LookupGroupID(gid int) (*OSGroup, error) {
	g, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return nil, err
	}
	return &OSGroup{g: g}, nil
}

func (o *OSGroup) GID() int {
	n, err := strconv.Atoi(o.g.Gid)
	if err != nil {
		return -1
	}
	return n
}

func (o *OSGroup) Name() (string, bool) { return o.g.Name, true }
