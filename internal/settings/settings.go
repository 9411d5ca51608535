// Package settings is the typed table of recognized Defaults names: their
// kind (flag, integer, text, enum, list), their default value, and the
// "negation default" substituted when a bare "!name" is written for a
// setting that isn't itself a flag.
package settings

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/diagnostics"
)

// Kind is the shape a recognized setting's value takes.
type Kind int

const (
	FlagKind Kind = iota
	IntegerKind
	TextKind
	ListKind
	EnumKind
)

// Descriptor is one row of the compile-time settings table: name, kind,
// default, and (for non-list kinds) an optional negation default.
type Descriptor struct {
	Name string
	Kind Kind

	DefaultFlag bool

	DefaultInt int64
	NegatedInt *int64

	DefaultText string
	NegatedText *string

	DefaultList []string

	DefaultEnum string
	NegatedEnum *string
	AllowedEnum []string
}

func optInt(v int64) *int64       { return &v }
func optText(v string) *string    { return &v }

// table mirrors the "defaults!" block: each recognized Defaults name with
// its default and (where documented) negated value.
var table = map[string]Descriptor{
	"always_query_group_plugin": {Name: "always_query_group_plugin", Kind: FlagKind, DefaultFlag: false},
	"always_set_home":           {Name: "always_set_home", Kind: FlagKind, DefaultFlag: false},
	"env_reset":                 {Name: "env_reset", Kind: FlagKind, DefaultFlag: true},
	"mail_badpass":              {Name: "mail_badpass", Kind: FlagKind, DefaultFlag: true},
	"match_group_by_gid":        {Name: "match_group_by_gid", Kind: FlagKind, DefaultFlag: false},
	"use_pty":                   {Name: "use_pty", Kind: FlagKind, DefaultFlag: false},
	"visiblepw":                 {Name: "visiblepw", Kind: FlagKind, DefaultFlag: false},

	"passwd_tries": {Name: "passwd_tries", Kind: IntegerKind, DefaultInt: 3},
	"umask":        {Name: "umask", Kind: IntegerKind, DefaultInt: 0o22, NegatedInt: optInt(0o777)},

	"editor":       {Name: "editor", Kind: TextKind, DefaultText: "/usr/bin/editor"},
	"lecture_file":  {Name: "lecture_file", Kind: TextKind, DefaultText: ""},
	"secure_path":  {Name: "secure_path", Kind: TextKind, DefaultText: "", NegatedText: optText("")},
	"verifypw": {
		Name: "verifypw", Kind: EnumKind,
		DefaultEnum: "all", NegatedEnum: optText("never"),
		AllowedEnum: []string{"all", "always", "any", "never"},
	},

	"env_keep": {Name: "env_keep", Kind: ListKind, DefaultList: []string{
		"COLORS", "DISPLAY", "HOSTNAME", "KRB5CCNAME", "LS_COLORS", "PATH",
		"PS1", "PS2", "XAUTHORITY", "XAUTHORIZATION", "XDG_CURRENT_DESKTOP",
	}},
	"env_check": {Name: "env_check", Kind: ListKind, DefaultList: []string{
		"COLORTERM", "LANG", "LANGUAGE", "LC_*", "LINGUAS", "TERM", "TZ",
	}},
	"env_delete": {Name: "env_delete", Kind: ListKind, DefaultList: []string{
		"IFS", "CDPATH", "LOCALDOMAIN", "RES_OPTIONS", "HOSTALIASES",
		"NLSPATH", "PATH_LOCALE", "LD_*", "_RLD*", "TERMINFO", "TERMINFO_DIRS",
		"TERMPATH", "TERMCAP", "ENV", "BASH_ENV", "PS4", "GLOBIGNORE",
		"BASHOPTS", "SHELLOPTS", "JAVA_TOOL_OPTIONS", "PERLIO_DEBUG",
		"PERLLIB", "PERL5LIB", "PERL5OPT", "PERL5DB", "FPATH", "NULLCMD",
		"READNULLCMD", "ZDOTDIR", "TMPPREFIX", "PYTHONHOME", "PYTHONPATH",
		"PYTHONINSPECT", "PYTHONUSERBASE", "RUBYLIB", "RUBYOPT", "*=()*",
	}},
}

// Lookup returns the descriptor for name, if recognized.
func Lookup(name string) (Descriptor, bool) {
	d, ok := table[name]
	return d, ok
}

// EnumValue is the current value of an enum setting together with the
// allowed set it was validated against.
type EnumValue struct {
	Value   string
	Allowed []string
}

// EffectiveSettings is the mutable settings table a Policy carries: always
// fully populated (every recognized name has a value) because it is
// seeded from the defaults table before any Defaults directive is
// applied.
type EffectiveSettings struct {
	Flags    map[string]bool
	Integers map[string]int64
	Strings  map[string]*string
	Lists    map[string]map[string]struct{}
	Enums    map[string]EnumValue
}

// New builds an EffectiveSettings populated entirely from the built-in
// defaults table.
func New() *EffectiveSettings {
	es := &EffectiveSettings{
		Flags:    map[string]bool{},
		Integers: map[string]int64{},
		Strings:  map[string]*string{},
		Lists:    map[string]map[string]struct{}{},
		Enums:    map[string]EnumValue{},
	}
	for name, d := range table {
		switch d.Kind {
		case FlagKind:
			es.Flags[name] = d.DefaultFlag
		case IntegerKind:
			es.Integers[name] = d.DefaultInt
		case TextKind:
			v := d.DefaultText
			es.Strings[name] = &v
		case ListKind:
			set := make(map[string]struct{}, len(d.DefaultList))
			for _, item := range d.DefaultList {
				set[item] = struct{}{}
			}
			es.Lists[name] = set
		case EnumKind:
			es.Enums[name] = EnumValue{Value: d.DefaultEnum, Allowed: d.AllowedEnum}
		}
	}
	return es
}

// Clone returns a deep copy, so a Verdict can carry settings without
// holding a reference into the Policy that produced it.
func (es *EffectiveSettings) Clone() *EffectiveSettings {
	out := &EffectiveSettings{
		Flags:    make(map[string]bool, len(es.Flags)),
		Integers: make(map[string]int64, len(es.Integers)),
		Strings:  make(map[string]*string, len(es.Strings)),
		Lists:    make(map[string]map[string]struct{}, len(es.Lists)),
		Enums:    make(map[string]EnumValue, len(es.Enums)),
	}
	for k, v := range es.Flags {
		out.Flags[k] = v
	}
	for k, v := range es.Integers {
		out.Integers[k] = v
	}
	for k, v := range es.Strings {
		if v == nil {
			out.Strings[k] = nil
			continue
		}
		cp := *v
		out.Strings[k] = &cp
	}
	for k, set := range es.Lists {
		cp := make(map[string]struct{}, len(set))
		for item := range set {
			cp[item] = struct{}{}
		}
		out.Lists[k] = cp
	}
	for k, v := range es.Enums {
		out.Enums[k] = v
	}
	return out
}

// ListValues returns the current members of a list setting as a sorted
// slice, for callers (env_keep, env_check, env_delete) that need a stable
// read.
func (es *EffectiveSettings) ListValues(name string) []string {
	set, ok := es.Lists[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Apply mutates es according to one Defaults directive, in source order.
// Type mismatches and unknown names are reported as diagnostics rather
// than halting; the directive is then a no-op.
func Apply(es *EffectiveSettings, d ast.DefaultsDirective, bag *diagnostics.Bag) {
	desc, ok := Lookup(d.Name)
	if !ok {
		bag.Addf(d.NamePos, "unknown setting: %s", d.Name)
		return
	}

	if !d.HasValue {
		applyBare(es, desc, d, bag)
		return
	}

	switch d.Op {
	case ast.OpAssign:
		applyAssign(es, desc, d, bag)
	case ast.OpAdd:
		applyListMutation(es, desc, d, bag, true)
	case ast.OpDel:
		applyListMutation(es, desc, d, bag, false)
	}
}

func applyBare(es *EffectiveSettings, desc Descriptor, d ast.DefaultsDirective, bag *diagnostics.Bag) {
	if !d.Negated {
		if desc.Kind != FlagKind {
			bag.Addf(d.NamePos, "%s is not a flag setting", d.Name)
			return
		}
		es.Flags[d.Name] = true
		return
	}

	switch desc.Kind {
	case FlagKind:
		es.Flags[d.Name] = false
	case IntegerKind:
		if desc.NegatedInt == nil {
			bag.Addf(d.NamePos, "%s has no negation default", d.Name)
			return
		}
		es.Integers[d.Name] = *desc.NegatedInt
	case TextKind:
		if desc.NegatedText == nil {
			bag.Addf(d.NamePos, "%s has no negation default", d.Name)
			return
		}
		v := *desc.NegatedText
		es.Strings[d.Name] = &v
	case EnumKind:
		if desc.NegatedEnum == nil {
			bag.Addf(d.NamePos, "%s has no negation default", d.Name)
			return
		}
		es.Enums[d.Name] = EnumValue{Value: *desc.NegatedEnum, Allowed: desc.AllowedEnum}
	case ListKind:
		es.Lists[d.Name] = map[string]struct{}{}
	}
}

func applyAssign(es *EffectiveSettings, desc Descriptor, d ast.DefaultsDirective, bag *diagnostics.Bag) {
	switch desc.Kind {
	case FlagKind:
		bag.Addf(d.NamePos, "'=' is not valid on flag setting %s", d.Name)
	case IntegerKind:
		n, err := strconv.ParseInt(strings.TrimSpace(d.Value), 0, 64)
		if err != nil {
			bag.Addf(d.NamePos, "invalid integer value for %s: %q", d.Name, d.Value)
			return
		}
		es.Integers[d.Name] = n
	case TextKind:
		v := d.Value
		es.Strings[d.Name] = &v
	case EnumKind:
		if !contains(desc.AllowedEnum, d.Value) {
			bag.Addf(d.NamePos, "%q is not a valid value for %s", d.Value, d.Name)
			return
		}
		es.Enums[d.Name] = EnumValue{Value: d.Value, Allowed: desc.AllowedEnum}
	case ListKind:
		set := make(map[string]struct{})
		for _, tok := range strings.Fields(d.Value) {
			set[tok] = struct{}{}
		}
		es.Lists[d.Name] = set
	}
}

func applyListMutation(es *EffectiveSettings, desc Descriptor, d ast.DefaultsDirective, bag *diagnostics.Bag, add bool) {
	if desc.Kind != ListKind {
		op := "+="
		if !add {
			op = "-="
		}
		bag.Addf(d.NamePos, "'%s' is only valid on list settings, %s is not a list", op, d.Name)
		return
	}
	set, ok := es.Lists[d.Name]
	if !ok {
		set = map[string]struct{}{}
	}
	for _, tok := range strings.Fields(d.Value) {
		if add {
			set[tok] = struct{}{}
		} else {
			delete(set, tok)
		}
	}
	es.Lists[d.Name] = set
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
