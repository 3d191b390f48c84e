package evaluator

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func TestEvalAssignShadowsEnvWithoutRefCell(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	s.Env = s.Env.Extend("x", types.NewInt(1))
	if _, err := evalAssign(s, &document.AssignExpr{Target: "x", Value: document.Operand{Inline: litInt(2)}}); err != nil {
		t.Fatalf("evalAssign: %v", err)
	}
	v, ok := s.Env.Lookup("x")
	if !ok || v.AsInt() != 2 {
		t.Fatalf("expected x==2 after assign, got %+v", v)
	}
}

func TestRefCellAssignMutatesInPlace(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	s.Env = s.Env.Extend("x", types.NewInt(1))
	if _, err := EvalExpr(&document.RefCellExpr{Target: "x"}, s); err != nil {
		t.Fatalf("refCell: %v", err)
	}
	if _, err := evalAssign(s, &document.AssignExpr{Target: "x", Value: document.Operand{Inline: litInt(99)}}); err != nil {
		t.Fatalf("evalAssign: %v", err)
	}
	derefVal, err := EvalExpr(&document.DerefExpr{Target: "x"}, s)
	if err != nil {
		t.Fatalf("deref: %v", err)
	}
	if derefVal.AsInt() != 99 {
		t.Fatalf("expected deref 99 after ref-cell assign, got %d", derefVal.AsInt())
	}
	// The lexical binding itself is untouched; only the cell mutated.
	envVal, _ := s.Env.Lookup("x")
	if envVal.AsInt() != 1 {
		t.Fatalf("expected original env binding unchanged, got %d", envVal.AsInt())
	}
}

func TestRefCellAliasingSharesOneCell(t *testing.T) {
	// let r = refCell(x); let s = r; assign(r, 9); deref(s) == 9
	src := newFakeSource()
	s := newTestState(src)
	s.Env = s.Env.Extend("x", types.NewInt(1))
	cellVal, err := EvalExpr(&document.RefCellExpr{Target: "x"}, s)
	if err != nil {
		t.Fatalf("refCell: %v", err)
	}
	s.Env = s.Env.Extend("r", cellVal)
	s.Env = s.Env.Extend("s", cellVal)

	if _, err := evalAssign(s, &document.AssignExpr{Target: "r", Value: document.Operand{Inline: litInt(9)}}); err != nil {
		t.Fatalf("evalAssign: %v", err)
	}
	v, err := EvalExpr(&document.DerefExpr{Target: "s"}, s)
	if err != nil {
		t.Fatalf("deref through alias: %v", err)
	}
	if v.AsInt() != 9 {
		t.Fatalf("expected aliased deref 9, got %d", v.AsInt())
	}
	// The lifted binding's own name still reaches the same cell.
	direct, err := EvalExpr(&document.DerefExpr{Target: "x"}, s)
	if err != nil {
		t.Fatalf("deref: %v", err)
	}
	if direct.AsInt() != 9 {
		t.Fatalf("expected deref 9 via lift-site name, got %d", direct.AsInt())
	}
}

func TestEvalWhileAccumulatesViaRefCell(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	s.Env = s.Env.Extend("i", types.NewInt(0))
	if _, err := EvalExpr(&document.RefCellExpr{Target: "i"}, s); err != nil {
		t.Fatalf("refCell: %v", err)
	}
	cond := &document.CallExpr{NS: "core", Name: "lt", Args: []document.Operand{
		{Inline: &document.DerefExpr{Target: "i"}},
		{Inline: litInt(3)},
	}}
	s.Operators.Register(&registry.Operator{
		NS: "core", Name: "lt", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewBool(args[0].AsInt() < args[1].AsInt()), nil
		},
	})
	body := &document.AssignExpr{Target: "i", Value: document.Operand{Inline: &document.CallExpr{
		NS: "core", Name: "add",
		Args: []document.Operand{{Inline: &document.DerefExpr{Target: "i"}}, {Inline: litInt(1)}},
	}}}
	if _, err := evalWhile(s, &document.WhileExpr{
		Cond: document.Operand{Inline: cond},
		Body: document.Operand{Inline: body},
	}); err != nil {
		t.Fatalf("evalWhile: %v", err)
	}
	final, err := EvalExpr(&document.DerefExpr{Target: "i"}, s)
	if err != nil {
		t.Fatalf("deref: %v", err)
	}
	if final.AsInt() != 3 {
		t.Fatalf("expected i==3 after loop, got %d", final.AsInt())
	}
}

func TestEvalTryCatchesEvalError(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	s.Operators.Register(&registry.Operator{
		NS: "core", Name: "divZero", Arity: 0, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.Value{}, types.NewDivideByZero()
		},
	})
	tryExpr := &document.TryExpr{
		TryBody: document.Operand{Inline: &document.CallExpr{NS: "core", Name: "divZero", Args: nil}},
		CatchParam: "e",
		CatchBody:  document.Operand{Inline: litInt(-1)},
	}
	v, err := evalTry(s, tryExpr)
	if err != nil {
		t.Fatalf("evalTry: %v", err)
	}
	if v.AsInt() != -1 {
		t.Fatalf("expected catch body result -1, got %d", v.AsInt())
	}
}

func TestEvalIterSumsList(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	s.Env = s.Env.Extend("acc", types.NewInt(0))
	if _, err := EvalExpr(&document.RefCellExpr{Target: "acc"}, s); err != nil {
		t.Fatalf("refCell: %v", err)
	}
	listExpr := &document.ListOfExpr{Elements: []document.Operand{
		{Inline: litInt(1)}, {Inline: litInt(2)}, {Inline: litInt(3)},
	}}
	body := &document.AssignExpr{Target: "acc", Value: document.Operand{Inline: &document.CallExpr{
		NS: "core", Name: "add",
		Args: []document.Operand{{Inline: &document.DerefExpr{Target: "acc"}}, {Inline: &document.VarExpr{Name: "x"}}},
	}}}
	if _, err := evalIter(s, &document.IterExpr{Var: "x", Iterable: document.Operand{Inline: listExpr}, Body: document.Operand{Inline: body}}); err != nil {
		t.Fatalf("evalIter: %v", err)
	}
	final, err := EvalExpr(&document.DerefExpr{Target: "acc"}, s)
	if err != nil {
		t.Fatalf("deref: %v", err)
	}
	if final.AsInt() != 6 {
		t.Fatalf("expected acc==6, got %d", final.AsInt())
	}
}
