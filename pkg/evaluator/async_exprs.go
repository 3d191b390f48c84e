package evaluator

import (
	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/types"
)

// The expression-level PIR forms (spec.md §4.7) all require an AsyncHost;
// absent one, they report DomainError rather than panicking, since a
// document mixing concurrent constructs into a synchronous evaluation run
// is a caller error, not a crash.

func evalPar(s *EvalState, e *document.ParExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("par requires async evaluation")
	}
	branches := make([]func() (types.Value, error), len(e.Branches))
	for i, op := range e.Branches {
		op := op
		branches[i] = func() (types.Value, error) { return resolveOperand(op, s) }
	}
	return s.Async.Par(branches)
}

func evalSpawn(s *EvalState, e *document.SpawnExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("spawn requires async evaluation")
	}
	body := e.Body
	future := s.Async.Spawn(func() (types.Value, error) { return resolveOperand(body, s) })
	return future, nil
}

func evalAwait(s *EvalState, e *document.AwaitExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("await requires async evaluation")
	}
	futureVal, err := resolveOperand(e.Future, s)
	if err != nil {
		return types.Value{}, err
	}
	return s.Async.Await(futureVal)
}

func evalSend(s *EvalState, e *document.SendExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("send requires async evaluation")
	}
	ch, err := resolveOperand(e.Channel, s)
	if err != nil {
		return types.Value{}, err
	}
	val, err := resolveOperand(e.Value, s)
	if err != nil {
		return types.Value{}, err
	}
	if err := s.Async.Send(ch, val); err != nil {
		return types.Value{}, err
	}
	return types.Value{}, nil
}

func evalRecv(s *EvalState, e *document.RecvExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("recv requires async evaluation")
	}
	ch, err := resolveOperand(e.Channel, s)
	if err != nil {
		return types.Value{}, err
	}
	return s.Async.Recv(ch)
}

func evalClose(s *EvalState, e *document.CloseExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("close requires async evaluation")
	}
	ch, err := resolveOperand(e.Channel, s)
	if err != nil {
		return types.Value{}, err
	}
	if err := s.Async.CloseChannel(ch); err != nil {
		return types.Value{}, err
	}
	return types.Value{}, nil
}

func evalSelect(s *EvalState, e *document.SelectExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("select requires async evaluation")
	}
	futures := make([]types.Value, len(e.Futures))
	for i, op := range e.Futures {
		v, err := resolveOperand(op, s)
		if err != nil {
			return types.Value{}, err
		}
		futures[i] = v
	}
	hasTimeout := false
	timeoutMs := 0
	if e.Timeout != nil {
		tv, err := resolveOperand(*e.Timeout, s)
		if err != nil {
			return types.Value{}, err
		}
		if tv.Type() != types.KindInt {
			return types.Value{}, types.NewTypeError("select timeout must be int (milliseconds)")
		}
		hasTimeout = true
		timeoutMs = int(tv.AsInt())
	}
	return s.Async.Select(futures, timeoutMs, hasTimeout)
}

func evalRace(s *EvalState, e *document.RaceExpr) (types.Value, error) {
	if s.Async == nil {
		return types.Value{}, types.NewDomainError("race requires async evaluation")
	}
	tasks := make([]func() (types.Value, error), len(e.Tasks))
	for i, op := range e.Tasks {
		op := op
		tasks[i] = func() (types.Value, error) { return resolveOperand(op, s) }
	}
	return s.Async.Race(tasks)
}
