package environ

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/types"
)

func TestEnvExtendShadowsWithoutMutatingParent(t *testing.T) {
	base := Empty().Extend("x", types.NewInt(1))
	shadowed := base.Extend("x", types.NewInt(2))

	v, ok := base.Lookup("x")
	if !ok || v.AsInt() != 1 {
		t.Fatalf("base binding mutated: got %+v", v)
	}
	v, ok = shadowed.Lookup("x")
	if !ok || v.AsInt() != 2 {
		t.Fatalf("expected shadowed value 2, got %+v", v)
	}
}

func TestEnvLookupMissing(t *testing.T) {
	env := Empty().Extend("x", types.NewInt(1))
	if _, ok := env.Lookup("y"); ok {
		t.Fatalf("expected missing binding")
	}
}

func TestDefTableLookup(t *testing.T) {
	table := NewDefTable([]*Def{
		{NS: "math", Name: "square", Params: []DefParam{{Name: "x"}}, Body: "n1"},
	})
	def, ok := table.Lookup("math", "square")
	if !ok {
		t.Fatalf("expected def math:square")
	}
	if len(def.Params) != 1 || def.Params[0].Name != "x" {
		t.Fatalf("unexpected params: %+v", def.Params)
	}
	if _, ok := table.Lookup("math", "missing"); ok {
		t.Fatalf("expected missing def to be absent")
	}
}

func TestDefTableWithShadowsAndPreservesReceiver(t *testing.T) {
	base := NewDefTable([]*Def{
		{NS: "math", Name: "square", Body: "n1"},
	})
	merged := base.With([]*Def{
		{NS: "math", Name: "square", Body: "n2"},
		{NS: "math", Name: "cube", Body: "n3"},
	})

	def, _ := merged.Lookup("math", "square")
	if def.Body != "n2" {
		t.Fatalf("expected merged def to shadow, got body %v", def.Body)
	}
	if _, ok := merged.Lookup("math", "cube"); !ok {
		t.Fatalf("expected cube in merged table")
	}
	orig, _ := base.Lookup("math", "square")
	if orig.Body != "n1" {
		t.Fatalf("receiver mutated: got body %v", orig.Body)
	}
	if _, ok := base.Lookup("math", "cube"); ok {
		t.Fatalf("receiver mutated: cube leaked into base")
	}
}
