package evaluator

import (
	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/types"
)

func evalSeq(s *EvalState, e *document.SeqExpr) (types.Value, error) {
	if _, err := resolveOperand(e.First, s); err != nil {
		return types.Value{}, err
	}
	return resolveOperand(e.Then, s)
}

// evalAssign implements `assign target value` (spec.md §4.6): if a
// ref-cell backs target, the cell is mutated in place; otherwise the
// environment is extended (shadowed), never mutated.
func evalAssign(s *EvalState, e *document.AssignExpr) (types.Value, error) {
	val, err := resolveOperand(e.Value, s)
	if err != nil {
		return types.Value{}, err
	}
	if cell, ok := resolveRefCell(s, e.Target); ok {
		cell.Set(val)
		return types.Value{}, nil
	}
	s.Env = s.Env.Extend(e.Target, val)
	return types.Value{}, nil
}

func evalWhile(s *EvalState, e *document.WhileExpr) (types.Value, error) {
	var last types.Value
	entered := false
	for {
		if err := s.tick(); err != nil {
			return types.Value{}, err
		}
		cond, err := resolveOperand(e.Cond, s)
		if err != nil {
			return types.Value{}, err
		}
		if cond.Type() != types.KindBool {
			return types.Value{}, types.NewTypeError("while condition must be bool")
		}
		if !cond.AsBool() {
			break
		}
		entered = true
		last, err = resolveOperand(e.Body, s)
		if err != nil {
			return types.Value{}, err
		}
	}
	if !entered {
		return types.Value{}, nil
	}
	return last, nil
}

func evalFor(s *EvalState, e *document.ForExpr) (types.Value, error) {
	initVal, err := resolveOperand(e.Init, s)
	if err != nil {
		return types.Value{}, err
	}
	loopState := s.WithEnv(s.Env.Extend(e.Var, initVal))
	var last types.Value
	entered := false
	for {
		if err := loopState.tick(); err != nil {
			return types.Value{}, err
		}
		cond, err := resolveOperand(e.Cond, loopState)
		if err != nil {
			return types.Value{}, err
		}
		if cond.Type() != types.KindBool {
			return types.Value{}, types.NewTypeError("for condition must be bool")
		}
		if !cond.AsBool() {
			break
		}
		entered = true
		last, err = resolveOperand(e.Body, loopState)
		if err != nil {
			return types.Value{}, err
		}
		updated, err := resolveOperand(e.Update, loopState)
		if err != nil {
			return types.Value{}, err
		}
		loopState = loopState.WithEnv(loopState.Env.Extend(e.Var, updated))
	}
	s.Env = loopState.Env
	if !entered {
		return types.Value{}, nil
	}
	return last, nil
}

func evalIter(s *EvalState, e *document.IterExpr) (types.Value, error) {
	iterable, err := resolveOperand(e.Iterable, s)
	if err != nil {
		return types.Value{}, err
	}
	var elements []types.Value
	switch iterable.Type() {
	case types.KindList:
		elements = iterable.AsList()
	case types.KindSet:
		// Set elements round-trip through their hash keys, so only the
		// primitive kinds are iterable (spec.md §4.6).
		elements = iterable.AsSet()
		for _, el := range elements {
			switch el.Type() {
			case types.KindBool, types.KindInt, types.KindFloat, types.KindString:
			default:
				return types.Value{}, types.NewTypeError("iter over a set requires primitive elements, got " + el.Type().String())
			}
		}
	default:
		return types.Value{}, types.NewTypeError("iter requires a list or set")
	}

	var last types.Value
	loopState := s
	for _, el := range elements {
		if err := loopState.tick(); err != nil {
			return types.Value{}, err
		}
		loopState = loopState.WithEnv(loopState.Env.Extend(e.Var, el))
		last, err = resolveOperand(e.Body, loopState)
		if err != nil {
			return types.Value{}, err
		}
	}
	if loopState != s {
		s.Env = loopState.Env
	}
	if len(elements) == 0 {
		return types.Value{}, nil
	}
	return last, nil
}

func evalEffect(s *EvalState, e *document.EffectExpr) (types.Value, error) {
	if s.Effects == nil {
		return types.Value{}, types.NewDomainError("no effect registry bound to this evaluation")
	}
	args, err := resolveOperands(e.Args, s)
	if err != nil {
		return types.Value{}, err
	}
	result, err := s.Effects.Invoke(e.Name, args)
	if err != nil {
		if ee, ok := err.(*types.EvalError); ok {
			return types.Value{}, ee
		}
		return types.Value{}, types.NewDomainError("effect " + e.Name + " panicked: " + err.Error())
	}
	return result, nil
}

// resolveRefCell finds the cell backing target. Cell identity lives in
// the RefCell Value itself: when target is bound to a RefCell (the
// `let r = refCell(x); let s = r` aliasing case, spec.md §8), the bound
// Value's own cell pointer wins regardless of what name it travelled
// under. The name-derived id covers the lifted binding itself, which
// stays bound to its plain value at the lift site.
func resolveRefCell(s *EvalState, target string) (*types.RefCell, bool) {
	if v, ok := s.Env.Lookup(target); ok && v.Type() == types.KindRefCell {
		return v.AsRefCell(), true
	}
	if cell, ok := s.RefCells[target+"_ref"]; ok {
		return cell, true
	}
	return nil, false
}

func evalRefCell(s *EvalState, e *document.RefCellExpr) (types.Value, error) {
	val, err := localLookup(nil, s, e.Target)
	if err != nil {
		return types.Value{}, err
	}
	id := e.Target + "_ref"
	cell := types.NewRefCell(id, val)
	s.RefCells[id] = cell
	return types.NewRefCellValue(cell), nil
}

func evalDeref(s *EvalState, e *document.DerefExpr) (types.Value, error) {
	cell, ok := resolveRefCell(s, e.Target)
	if !ok {
		return types.Value{}, types.NewDomainError("no ref-cell bound to " + e.Target)
	}
	return cell.Get(), nil
}

// evalTry implements exception handling (spec.md §4.6): on Error from
// tryBody, binds catchParam and evaluates catchBody; on success, runs an
// optional fallback for guaranteed-cleanup semantics.
func evalTry(s *EvalState, e *document.TryExpr) (types.Value, error) {
	tryVal, tryErr := resolveOperand(e.TryBody, s)
	if tryErr != nil {
		ee, ok := tryErr.(*types.EvalError)
		if !ok {
			return types.Value{}, tryErr
		}
		catchState := s.WithEnv(s.Env.Extend(e.CatchParam, ee.ToValue()))
		result, err := resolveOperand(e.CatchBody, catchState)
		s.Env = catchState.Env
		return result, err
	}
	if e.Fallback != nil {
		return resolveOperand(*e.Fallback, s)
	}
	return tryVal, nil
}
