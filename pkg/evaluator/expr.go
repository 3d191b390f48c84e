package evaluator

import (
	"fmt"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/types"
)

// EvalExpr turns an expression plus the current state into a Value
// (spec.md §4.4, §4.6, §4.7). It dispatches on the concrete document.Expr
// type and covers every tier: pure/higher-order (AIR/CIR), effectful
// (EIR), and the expression-level concurrent forms (PIR), the last of
// which require s.Async to be non-nil.
func EvalExpr(expr document.Expr, s *EvalState) (types.Value, error) {
	if err := s.tick(); err != nil {
		return types.Value{}, err
	}

	switch e := expr.(type) {

	case *document.LitExpr:
		return evalLit(e)

	case *document.VarExpr:
		v, err := localLookup(nil, s, e.Name)
		if err != nil {
			return types.Value{}, err
		}
		return v, nil

	case *document.RefExpr:
		return s.Resolver.ResolveNode(e.ID)

	case *document.CallExpr:
		args, err := evalCallArgs(s, e.NS, e.Name, e.Args)
		if err != nil {
			return types.Value{}, err
		}
		return callOperator(s, e.NS, e.Name, args)

	case *document.IfExpr:
		cond, err := resolveOperand(e.Cond, s)
		if err != nil {
			return types.Value{}, err
		}
		if cond.Type() != types.KindBool {
			return types.Value{}, types.NewTypeError("if condition must be bool")
		}
		if cond.AsBool() {
			return resolveOperand(e.Then, s)
		}
		return resolveOperand(e.Else, s)

	case *document.LetExpr:
		val, err := resolveOperand(e.Value, s)
		if err != nil {
			return types.Value{}, err
		}
		inner := s.WithEnv(s.Env.Extend(e.Name, val))
		return resolveOperand(e.Body, inner)

	case *document.AirRefExpr:
		return evalAirRef(s, e.NS, e.Name, e.Args)

	case *document.PredicateExpr:
		if _, err := s.Resolver.ResolveNode(e.Ref); err != nil {
			return types.Value{}, types.NewDomainError("predicate reference unresolved: " + e.Ref)
		}
		return types.NewBool(true), nil

	case *document.DoExpr:
		if len(e.Exprs) == 0 {
			return types.Value{}, nil
		}
		var last types.Value
		for _, op := range e.Exprs {
			v, err := resolveOperand(op, s)
			if err != nil {
				return types.Value{}, err
			}
			last = v
		}
		return last, nil

	case *document.RecordExpr:
		m := types.NewOrderedMap()
		for _, f := range e.Fields {
			v, err := resolveOperand(f.Value, s)
			if err != nil {
				return types.Value{}, err
			}
			m.Set(f.Key, v)
		}
		return types.NewMap(m), nil

	case *document.ListOfExpr:
		elems := make([]types.Value, len(e.Elements))
		for i, op := range e.Elements {
			v, err := resolveOperand(op, s)
			if err != nil {
				return types.Value{}, err
			}
			elems[i] = v
		}
		return types.NewList(elems), nil

	case *document.MatchExpr:
		scrut, err := resolveOperand(e.Scrutinee, s)
		if err != nil {
			return types.Value{}, err
		}
		if scrut.Type() != types.KindString {
			return types.Value{}, types.NewTypeError("match scrutinee must be string")
		}
		for _, c := range e.Cases {
			if c.Value == scrut.AsString() {
				return resolveOperand(c.Body, s)
			}
		}
		if e.Default != nil {
			return resolveOperand(*e.Default, s)
		}
		return types.Value{}, types.NewDomainError("no match case for " + scrut.AsString())

	case *document.LambdaExpr:
		return types.NewClosure(&types.Closure{
			Params: buildParams(e.Params),
			Body:   e.Body,
			Env:    s.Env,
		}), nil

	case *document.CallExprApply:
		fnVal, err := resolveOperand(e.Fn, s)
		if err != nil {
			return types.Value{}, err
		}
		if fnVal.Type() != types.KindClosure {
			return types.Value{}, types.NewTypeError("callExpr target is not a closure")
		}
		args, err := resolveOperands(e.Args, s)
		if err != nil {
			return types.Value{}, err
		}
		return ApplyClosure(s, fnVal.AsClosure(), args)

	case *document.FixExpr:
		return evalFix(s, e)

	// --- EIR ---

	case *document.SeqExpr:
		return evalSeq(s, e)

	case *document.AssignExpr:
		return evalAssign(s, e)

	case *document.WhileExpr:
		return evalWhile(s, e)

	case *document.ForExpr:
		return evalFor(s, e)

	case *document.IterExpr:
		return evalIter(s, e)

	case *document.EffectExpr:
		return evalEffect(s, e)

	case *document.RefCellExpr:
		return evalRefCell(s, e)

	case *document.DerefExpr:
		return evalDeref(s, e)

	case *document.TryExpr:
		return evalTry(s, e)

	// --- PIR (expression level) ---

	case *document.ParExpr:
		return evalPar(s, e)

	case *document.SpawnExpr:
		return evalSpawn(s, e)

	case *document.AwaitExpr:
		return evalAwait(s, e)

	case *document.ChannelExpr:
		if s.Async == nil {
			return types.Value{}, types.NewDomainError("channel construct requires async evaluation")
		}
		return s.Async.NewChannel(e.ChannelKind)

	case *document.SendExpr:
		return evalSend(s, e)

	case *document.RecvExpr:
		return evalRecv(s, e)

	case *document.CloseExpr:
		return evalClose(s, e)

	case *document.SelectExpr:
		return evalSelect(s, e)

	case *document.RaceExpr:
		return evalRace(s, e)

	default:
		return types.Value{}, types.NewDomainError(fmt.Sprintf("unsupported expression kind %q", expr.Kind()))
	}
}

func evalLit(e *document.LitExpr) (types.Value, error) {
	kind := "void"
	if e.Type != nil {
		kind = e.Type.Kind
	}
	switch kind {
	case "void":
		return types.Value{}, nil
	case "bool":
		b, ok := e.Value.(bool)
		if !ok {
			return types.Value{}, types.NewTypeError("lit: expected bool payload")
		}
		return types.NewBool(b), nil
	case "int":
		switch n := e.Value.(type) {
		case float64:
			return types.NewInt(int64(n)), nil
		case int64:
			return types.NewInt(n), nil
		default:
			return types.Value{}, types.NewTypeError("lit: expected int payload")
		}
	case "float":
		switch n := e.Value.(type) {
		case float64:
			return types.NewFloat(n), nil
		case int64:
			return types.NewFloat(float64(n)), nil
		default:
			return types.Value{}, types.NewTypeError("lit: expected float payload")
		}
	case "string":
		str, ok := e.Value.(string)
		if !ok {
			return types.Value{}, types.NewTypeError("lit: expected string payload")
		}
		return types.NewString(str), nil
	default:
		return types.Value{}, types.NewTypeError(fmt.Sprintf("lit: unsupported literal kind %q at this tier", kind))
	}
}

// evalCallArgs resolves a call's positional arguments. Every operator
// short-circuits on the first argument Error except the error-inspecting
// primitive core:isError, which receives the error as an ordinary
// argument value (spec.md §4.4, §7).
func evalCallArgs(s *EvalState, ns, name string, ops []document.Operand) ([]types.Value, error) {
	if ns == "core" && name == "isError" {
		args := make([]types.Value, len(ops))
		for i, op := range ops {
			v, err := resolveOperand(op, s)
			if err != nil {
				ee, ok := err.(*types.EvalError)
				if !ok {
					return nil, err
				}
				v = ee.ToValue()
			}
			args[i] = v
		}
		return args, nil
	}
	return resolveOperands(ops, s)
}

func callOperator(s *EvalState, ns, name string, args []types.Value) (types.Value, error) {
	result, err := s.Operators.Call(ns, name, args)
	if err != nil {
		if ee, ok := err.(*types.EvalError); ok {
			return types.Value{}, ee
		}
		return types.Value{}, types.NewDomainError(fmt.Sprintf("operator %s:%s panicked: %v", ns, name, err))
	}
	return result, nil
}

func evalAirRef(s *EvalState, ns, name string, args []document.Operand) (types.Value, error) {
	def, ok := s.Defs.Lookup(ns, name)
	if !ok {
		return types.Value{}, types.NewUnknownDefinition(ns, name)
	}
	if len(args) != len(def.Params) {
		return types.Value{}, types.NewArityError(fmt.Sprintf("%s:%s expects %d args, got %d", ns, name, len(def.Params), len(args)))
	}
	argVals, err := resolveOperands(args, s)
	if err != nil {
		return types.Value{}, err
	}
	env := environ.Empty()
	for i, p := range def.Params {
		env = env.Extend(p.Name, argVals[i])
	}
	bodyID, ok := def.Body.(string)
	if !ok {
		return types.Value{}, types.NewDomainError("airDef body is not a node id")
	}
	bodyExpr, err := fetchBoundBody(s, bodyID)
	if err != nil {
		return types.Value{}, err
	}
	return EvalExpr(bodyExpr, s.WithEnv(env))
}

// evalAirEntry invokes a registered "block" namespace definition by name
// with already-resolved positional arguments, used by the spawn block
// instruction to start a task at a named entry point (spec.md §4.7).
func evalAirEntry(s *EvalState, entry string, args []types.Value) (types.Value, error) {
	def, ok := s.Defs.Lookup("block", entry)
	if !ok {
		return types.Value{}, types.NewUnknownDefinition("block", entry)
	}
	if len(args) != len(def.Params) {
		return types.Value{}, types.NewArityError(fmt.Sprintf("block entry %s expects %d args, got %d", entry, len(def.Params), len(args)))
	}
	env := environ.Empty()
	for i, p := range def.Params {
		env = env.Extend(p.Name, args[i])
	}
	bodyID, ok := def.Body.(string)
	if !ok {
		return types.Value{}, types.NewDomainError("block entry body is not a node id")
	}
	bodyExpr, err := fetchBoundBody(s, bodyID)
	if err != nil {
		return types.Value{}, err
	}
	return EvalExpr(bodyExpr, s.WithEnv(env))
}

func buildParams(ps []document.Param) []types.ClosureParam {
	out := make([]types.ClosureParam, len(ps))
	for i, p := range ps {
		cp := types.ClosureParam{Name: p.Name, Optional: p.Optional, Type: p.Type}
		if p.Default != nil {
			cp.Default = p.Default
		}
		out[i] = cp
	}
	return out
}
