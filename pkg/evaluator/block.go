package evaluator

import (
	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/types"
)

// EvalBlock runs a basic-block CFG to completion (spec.md §4.5, §4.7): it
// maintains a current block id and a mutable local-variable map alongside
// the inherited environment, executes instructions sequentially, then
// interprets the terminator to choose the next block or to stop.
func EvalBlock(g *document.BlockGraph, s *EvalState) (types.Value, error) {
	locals := make(map[string]types.Value)
	// lastVisited tracks, per phi resolution, which predecessor block the
	// walk most recently came from (DESIGN decision: phi selects the first
	// source bound and non-error, tie-broken toward the last-visited
	// block over document order).
	lastVisited := ""
	cur := g.Entry

	for {
		if err := s.tick(); err != nil {
			return types.Value{}, err
		}
		block := g.ByID(cur)
		if block == nil {
			return types.Value{}, types.NewDomainError("unresolved block id " + cur)
		}

		for _, instr := range block.Instructions {
			if err := execInstr(s, locals, lastVisited, instr, g); err != nil {
				return types.Value{}, err
			}
		}

		next, result, done, err := execTerm(s, locals, block.Terminator, g)
		if err != nil {
			return types.Value{}, err
		}
		if done {
			return result, nil
		}
		lastVisited = cur
		cur = next
	}
}

func execInstr(s *EvalState, locals map[string]types.Value, lastVisited string, instr document.Instruction, g *document.BlockGraph) error {
	switch ins := instr.(type) {
	case *document.AssignInstr:
		v, err := evalBlockExpr(s, locals, ins.Expr)
		if err != nil {
			return err
		}
		locals[ins.Target] = v
		return nil

	case *document.OpInstr:
		args, err := resolveLocals(s, locals, ins.Args)
		if err != nil {
			return err
		}
		v, err := callOperator(s, ins.NS, ins.Name, args)
		if err != nil {
			if ee, ok := err.(*types.EvalError); ok {
				locals[ins.Target] = ee.ToValue()
				return ee
			}
			return err
		}
		locals[ins.Target] = v
		return nil

	case *document.PhiInstr:
		for _, src := range ins.Sources {
			if src.Block != lastVisited && lastVisited != "" {
				continue
			}
			if v, ok := locals[src.Value]; ok && !v.IsError() {
				locals[ins.Target] = v
				return nil
			}
		}
		for _, src := range ins.Sources {
			if v, ok := locals[src.Value]; ok && !v.IsError() {
				locals[ins.Target] = v
				return nil
			}
		}
		return types.NewDomainError("phi " + ins.Target + " has no bound, non-error source")

	case *document.CallInstr, *document.EffectInstr, *document.AssignRefInstr:
		return types.NewDomainError("instruction not supported in the pure-block tier")

	case *document.SpawnInstr:
		if s.Async == nil {
			return types.NewDomainError("spawn instruction requires async evaluation")
		}
		args, err := resolveLocals(s, locals, ins.Args)
		if err != nil {
			return err
		}
		future := s.Async.Spawn(func() (types.Value, error) {
			return evalAirEntry(s, ins.Entry, args)
		})
		locals[ins.Target] = future
		return nil

	case *document.ChannelOpInstr:
		if s.Async == nil {
			return types.NewDomainError("channel op instruction requires async evaluation")
		}
		ch, ok := locals[ins.Channel]
		if !ok {
			return types.NewDomainError("unbound channel local " + ins.Channel)
		}
		switch ins.Op {
		case "send":
			v, ok := locals[ins.Value]
			if !ok {
				return types.NewDomainError("unbound send value local " + ins.Value)
			}
			return s.Async.Send(ch, v)
		case "recv":
			v, err := s.Async.Recv(ch)
			if err != nil {
				return err
			}
			locals[ins.Target] = v
			return nil
		case "trySend":
			v, ok := locals[ins.Value]
			if !ok {
				return types.NewDomainError("unbound send value local " + ins.Value)
			}
			sent, err := s.Async.TrySend(ch, v)
			if err != nil {
				return err
			}
			locals[ins.Target2] = types.NewBool(sent)
			return nil
		case "tryRecv":
			v, ok, err := s.Async.TryRecv(ch)
			if err != nil {
				return err
			}
			locals[ins.Target2] = types.NewBool(ok)
			if ok {
				locals[ins.Target] = v
			}
			return nil
		default:
			return types.NewDomainError("unknown channel op " + ins.Op)
		}

	case *document.AwaitInstr:
		if s.Async == nil {
			return types.NewDomainError("await instruction requires async evaluation")
		}
		future, ok := locals[ins.Future]
		if !ok {
			return types.NewDomainError("unbound future local " + ins.Future)
		}
		v, err := s.Async.Await(future)
		if err != nil {
			return err
		}
		locals[ins.Target] = v
		return nil

	default:
		return types.NewDomainError("unrecognized block instruction")
	}
}

// evalBlockExpr evaluates the restricted expression subset permitted
// inline in a pure-block assign instruction: lit, var, ref (spec.md §4.5).
func evalBlockExpr(s *EvalState, locals map[string]types.Value, expr document.Expr) (types.Value, error) {
	switch e := expr.(type) {
	case *document.LitExpr:
		return evalLit(e)
	case *document.VarExpr:
		return localLookup(locals, s, e.Name)
	case *document.RefExpr:
		return s.Resolver.ResolveNode(e.ID)
	default:
		return types.Value{}, types.NewDomainError("unsupported assign expression in block tier")
	}
}

func resolveLocals(s *EvalState, locals map[string]types.Value, names []string) ([]types.Value, error) {
	vals := make([]types.Value, len(names))
	for i, name := range names {
		v, err := blockOperand(locals, s, name)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// execTerm interprets a block's terminator, returning the next block id
// (done=false) or a final result (done=true).
func execTerm(s *EvalState, locals map[string]types.Value, term document.Terminator, g *document.BlockGraph) (next string, result types.Value, done bool, err error) {
	switch t := term.(type) {
	case *document.JumpTerm:
		return t.To, types.Value{}, false, nil

	case *document.BranchTerm:
		cond, cerr := localLookup(locals, s, t.Cond)
		if cerr != nil {
			return "", types.Value{}, false, cerr
		}
		if cond.Type() != types.KindBool {
			return "", types.Value{}, false, types.NewTypeError("branch condition must be bool")
		}
		if cond.AsBool() {
			return t.Then, types.Value{}, false, nil
		}
		return t.Else, types.Value{}, false, nil

	case *document.ReturnTerm:
		if !t.HasValue {
			return "", types.Value{}, true, nil
		}
		v, verr := localLookup(locals, s, t.Value)
		if verr != nil {
			return "", types.Value{}, false, verr
		}
		return "", v, true, nil

	case *document.ExitTerm:
		return "", types.Value{}, true, nil

	case *document.ForkTerm:
		if s.Async == nil {
			return "", types.Value{}, false, types.NewDomainError("fork terminator requires async evaluation")
		}
		for _, branch := range t.Branches {
			branch := branch
			future := s.Async.Spawn(func() (types.Value, error) {
				return EvalBlock(&document.BlockGraph{Entry: branch.Block, Blocks: g.Blocks}, s)
			})
			locals[branch.TaskVar] = future
		}
		return t.Continuation, types.Value{}, false, nil

	case *document.JoinTerm:
		if s.Async == nil {
			return "", types.Value{}, false, types.NewDomainError("join terminator requires async evaluation")
		}
		for i, taskLocal := range t.Tasks {
			future, ok := locals[taskLocal]
			if !ok {
				return "", types.Value{}, false, types.NewDomainError("unbound task local " + taskLocal)
			}
			v, aerr := s.Async.Await(future)
			if aerr != nil {
				return "", types.Value{}, false, aerr
			}
			if i < len(t.Results) && t.Results[i] != "" {
				locals[t.Results[i]] = v
			}
		}
		return t.To, types.Value{}, false, nil

	case *document.SuspendTerm:
		if s.Async == nil {
			return "", types.Value{}, false, types.NewDomainError("suspend terminator requires async evaluation")
		}
		future, ok := locals[t.Future]
		if !ok {
			return "", types.Value{}, false, types.NewDomainError("unbound future local " + t.Future)
		}
		v, aerr := s.Async.Await(future)
		if aerr != nil {
			return "", types.Value{}, false, aerr
		}
		locals[t.ResumeBlock+"$resumeValue"] = v
		return t.ResumeBlock, types.Value{}, false, nil

	default:
		return "", types.Value{}, false, types.NewDomainError("unrecognized terminator")
	}
}

