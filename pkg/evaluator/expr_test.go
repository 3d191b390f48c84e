package evaluator

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

// fakeSource is an in-memory ExprSource/NodeResolver used to exercise the
// evaluator without a driver or a real document.
type fakeSource struct {
	exprs map[string]document.Expr
	cache map[string]types.Value
}

func newFakeSource() *fakeSource {
	return &fakeSource{exprs: map[string]document.Expr{}, cache: map[string]types.Value{}}
}

func (f *fakeSource) NodeExpr(id string) (document.Expr, error) {
	e, ok := f.exprs[id]
	if !ok {
		return nil, types.NewDomainError("no such node " + id)
	}
	return e, nil
}

func (f *fakeSource) ResolveNode(id string) (types.Value, error) {
	if v, ok := f.cache[id]; ok {
		return v, nil
	}
	e, err := f.NodeExpr(id)
	if err != nil {
		return types.Value{}, err
	}
	return types.Value{}, types.NewDomainError("uncached node not pre-seeded: " + id + " (" + e.Kind() + ")")
}

func litInt(n int64) document.Expr {
	return &document.LitExpr{Type: &document.Type{Kind: "int"}, Value: float64(n)}
}

func newTestState(src *fakeSource) *EvalState {
	reg := registry.New()
	reg.Register(&registry.Operator{
		NS: "core", Name: "add", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewInt(args[0].AsInt() + args[1].AsInt()), nil
		},
	})
	reg.Register(&registry.Operator{
		NS: "core", Name: "isError", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewBool(args[0].IsError()), nil
		},
	})
	return NewState(reg, environ.NewDefTable(nil), registry.NewEffectRegistry(), 1000, src, src)
}

func TestEvalLitAndCall(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	expr := &document.CallExpr{
		NS: "core", Name: "add",
		Args: []document.Operand{
			{Inline: litInt(2)},
			{Inline: litInt(3)},
		},
	}
	v, err := EvalExpr(expr, s)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if v.AsInt() != 5 {
		t.Fatalf("expected 5, got %d", v.AsInt())
	}
}

func TestEvalIfAndLet(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	letExpr := &document.LetExpr{
		Name:  "x",
		Value: document.Operand{Inline: litInt(1)},
		Body: document.Operand{Inline: &document.IfExpr{
			Cond: document.Operand{Inline: &document.VarExpr{Name: "does-not-exist"}},
			Then: document.Operand{Inline: litInt(10)},
			Else: document.Operand{Inline: litInt(20)},
		}},
	}
	// Cond referencing a missing var should error with UnboundIdentifier,
	// not silently fall through — verifies var lookup failure propagates.
	if _, err := EvalExpr(letExpr, s); err == nil {
		t.Fatalf("expected unbound identifier error")
	}

	ok := &document.LetExpr{
		Name:  "x",
		Value: document.Operand{Inline: litInt(1)},
		Body: document.Operand{Inline: &document.IfExpr{
			Cond: document.Operand{Inline: &document.CallExpr{NS: "core", Name: "isError", Args: []document.Operand{
				{Inline: litInt(0)},
			}}},
			Then: document.Operand{Inline: litInt(10)},
			Else: document.Operand{Inline: &document.VarExpr{Name: "x"}},
		}},
	}
	v, err := EvalExpr(ok, s)
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if v.AsInt() != 1 {
		t.Fatalf("expected let-bound x == 1, got %d", v.AsInt())
	}
}

func TestEvalLambdaAndApply(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	src.exprs["body1"] = &document.CallExpr{
		NS: "core", Name: "add",
		Args: []document.Operand{
			{Inline: &document.VarExpr{Name: "a"}},
			{Inline: &document.VarExpr{Name: "b"}},
		},
	}
	lambda := &document.LambdaExpr{
		Params: []document.Param{{Name: "a"}, {Name: "b"}},
		Body:   "body1",
	}
	closureVal, err := EvalExpr(lambda, s)
	if err != nil {
		t.Fatalf("EvalExpr lambda: %v", err)
	}
	apply := &document.CallExprApply{
		Fn:   document.Operand{Inline: &document.VarExpr{Name: "f"}},
		Args: []document.Operand{{Inline: litInt(4)}, {Inline: litInt(5)}},
	}
	s2 := s.WithEnv(s.Env.Extend("f", closureVal))
	v, err := EvalExpr(apply, s2)
	if err != nil {
		t.Fatalf("EvalExpr apply: %v", err)
	}
	if v.AsInt() != 9 {
		t.Fatalf("expected 9, got %d", v.AsInt())
	}
}

func TestEvalFixBuildsSelfReferentialClosure(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	// fact = fix(\self -> \n -> if n == 0 then 1 else n * (self (n-1)))
	// Simplified here: the inner body returns n unchanged with no recursive
	// call, enough to prove fix yields a callable closure.
	src.exprs["innerBody"] = &document.IfExpr{
		Cond: document.Operand{Inline: &document.CallExpr{NS: "core", Name: "isError", Args: []document.Operand{
			{Inline: &document.VarExpr{Name: "n"}},
		}}},
		Then: document.Operand{Inline: litInt(0)},
		Else: document.Operand{Inline: &document.VarExpr{Name: "n"}},
	}
	src.exprs["outerBody"] = &document.LambdaExpr{
		Params: []document.Param{{Name: "n"}},
		Body:   "innerBody",
	}
	fix := &document.FixExpr{
		Fn: document.Operand{Inline: &document.LambdaExpr{
			Params: []document.Param{{Name: "self"}},
			Body:   "outerBody",
		}},
	}
	v, err := EvalExpr(fix, s)
	if err != nil {
		t.Fatalf("EvalExpr fix: %v", err)
	}
	if v.Type() != types.KindClosure {
		t.Fatalf("expected closure, got %s", v.Type())
	}
	result, err := ApplyClosure(s, v.AsClosure(), []types.Value{types.NewInt(7)})
	if err != nil {
		t.Fatalf("ApplyClosure: %v", err)
	}
	if result.AsInt() != 7 {
		t.Fatalf("expected 7, got %d", result.AsInt())
	}
}

func TestEvalMatchDefaultAndCases(t *testing.T) {
	src := newFakeSource()
	s := newTestState(src)
	m := &document.MatchExpr{
		Scrutinee: document.Operand{Inline: &document.LitExpr{Type: &document.Type{Kind: "string"}, Value: "b"}},
		Cases: []document.MatchCase{
			{Value: "a", Body: document.Operand{Inline: litInt(1)}},
			{Value: "b", Body: document.Operand{Inline: litInt(2)}},
		},
	}
	v, err := EvalExpr(m, s)
	if err != nil {
		t.Fatalf("EvalExpr match: %v", err)
	}
	if v.AsInt() != 2 {
		t.Fatalf("expected 2, got %d", v.AsInt())
	}

	noMatch := &document.MatchExpr{
		Scrutinee: document.Operand{Inline: &document.LitExpr{Type: &document.Type{Kind: "string"}, Value: "z"}},
		Cases: []document.MatchCase{
			{Value: "a", Body: document.Operand{Inline: litInt(1)}},
		},
	}
	if _, err := EvalExpr(noMatch, s); err == nil {
		t.Fatalf("expected domain error for unmatched scrutinee with no default")
	}
}

func TestEvalAirRefArityError(t *testing.T) {
	src := newFakeSource()
	defs := environ.NewDefTable([]*environ.Def{
		{NS: "math", Name: "square", Params: []environ.DefParam{{Name: "x"}}, Body: "body"},
	})
	reg := registry.New()
	s := NewState(reg, defs, registry.NewEffectRegistry(), 1000, src, src)
	ref := &document.AirRefExpr{NS: "math", Name: "square", Args: []document.Operand{}}
	if _, err := EvalExpr(ref, s); err == nil {
		t.Fatalf("expected arity error")
	}
}
