package sudoers

import (
	"testing"

	"github.com/sudoersgo/policyengine/internal/ast"
	"github.com/sudoersgo/policyengine/internal/diagnostics"
	"github.com/sudoersgo/policyengine/internal/tokens"
)

func userDef(name string, body ...ast.Spec[ast.UserSpecifier]) AliasDef[ast.UserSpecifier] {
	return AliasDef[ast.UserSpecifier]{Name: name, Body: body}
}

func allowUser(name string) ast.Spec[ast.UserSpecifier] {
	return ast.Allow(ast.Only(ast.UserSpecifier{Kind: ast.UserKind, Ident: ast.Identifier{Name: name}}))
}

func aliasRef(name string) ast.Spec[ast.UserSpecifier] {
	return ast.Allow(ast.AliasRef[ast.UserSpecifier](name))
}

func TestSanitize_TopologicalOrder(t *testing.T) {
	defs := []AliasDef[ast.UserSpecifier]{
		userDef("A", aliasRef("B")),
		userDef("B", allowUser("bob")),
	}
	var bag diagnostics.Bag
	table := Sanitize(defs, &bag)
	if !bag.Empty() {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if len(table.Order) != 2 {
		t.Fatalf("expected 2 entries in Order, got %d", len(table.Order))
	}
	// B must be emitted before A, since A depends on it.
	bIdx, _ := table.IndexOf("B")
	aIdx, _ := table.IndexOf("A")
	bPos, aPos := -1, -1
	for i, idx := range table.Order {
		if idx == bIdx {
			bPos = i
		}
		if idx == aIdx {
			aPos = i
		}
	}
	if bPos > aPos {
		t.Errorf("expected B before A in Order, got positions B=%d A=%d", bPos, aPos)
	}
}

func TestSanitize_DuplicateNameDiagnosed(t *testing.T) {
	defs := []AliasDef[ast.UserSpecifier]{
		userDef("A", allowUser("alice")),
		userDef("A", allowUser("bob")),
	}
	var bag diagnostics.Bag
	table := Sanitize(defs, &bag)
	if bag.Empty() {
		t.Fatalf("expected a diagnostic for the duplicate alias name")
	}
	if len(table.Defs) != 1 {
		t.Fatalf("expected the first occurrence to be kept, got %d defs", len(table.Defs))
	}
}

func TestSanitize_UndefinedReferenceDiagnosed(t *testing.T) {
	defs := []AliasDef[ast.UserSpecifier]{
		userDef("A", aliasRef("GHOST")),
	}
	var bag diagnostics.Bag
	Sanitize(defs, &bag)
	if bag.Empty() {
		t.Fatalf("expected a diagnostic for the undefined alias reference")
	}
}

func TestSanitize_RecursiveAliasDiagnosed(t *testing.T) {
	defs := []AliasDef[ast.UserSpecifier]{
		userDef("A", aliasRef("B")),
		userDef("B", aliasRef("A")),
	}
	var bag diagnostics.Bag
	Sanitize(defs, &bag)
	if bag.Empty() {
		t.Fatalf("expected a diagnostic for the alias reference cycle")
	}
}

func TestSanitize_EmptyTable(t *testing.T) {
	var bag diagnostics.Bag
	table := Sanitize([]AliasDef[tokens.Hostname]{}, &bag)
	if !bag.Empty() {
		t.Errorf("unexpected diagnostics for an empty table: %v", bag.Items())
	}
	if len(table.Order) != 0 {
		t.Errorf("expected an empty Order")
	}
}
