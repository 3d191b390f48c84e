// Package evaluator implements the pure, higher-order, effectful, and
// block/CFG evaluator tiers (spec.md §4.4–§4.6) over a shared mutable
// EvalState. The concurrent (PIR) expression forms delegate to an
// AsyncHost supplied by pkg/async, kept as an interface here so this
// package never imports the scheduler package it is extended by.
package evaluator

import (
	"fmt"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

// NodeResolver resolves a document node-id to its cached, program-level
// Value. It backs the `ref` expression form (spec.md §4.4: "returns
// the cached node value, or if absent recursively evaluates the
// referenced node"), predicates, block-local refs, node-id operands that
// resolveOperand does not re-evaluate, and the lookup fallback for names
// not bound in scope. pkg/driver supplies the concrete implementation.
type NodeResolver interface {
	ResolveNode(id string) (types.Value, error)
}

// ExprSource fetches a node's raw expression tree by id, without caching.
// It backs lambda and airDef bodies, which are "bound nodes" (spec.md
// §4.8): they depend on a dynamic scope that does not exist at program
// level, so they are re-evaluated on every reference rather than
// resolved once and cached. resolveOperand also fetches node-id operands
// through it, re-evaluating var/let/call nodes and sending every other
// node through NodeResolver's cache.
type ExprSource interface {
	NodeExpr(id string) (document.Expr, error)
}

// AsyncHost is the scheduler/channel-store surface the PIR expression
// forms (spawn, await, par, channel, send, recv, select, race) dispatch
// through. A nil Async field means the async tier is unavailable — those
// forms report DomainError, matching evaluation of PIR constructs outside
// an async-capable run.
type AsyncHost interface {
	Spawn(body func() (types.Value, error)) types.Value
	Await(future types.Value) (types.Value, error)
	Par(branches []func() (types.Value, error)) (types.Value, error)
	NewChannel(kind string) (types.Value, error)
	Send(ch types.Value, v types.Value) error
	Recv(ch types.Value) (types.Value, error)
	CloseChannel(ch types.Value) error
	TrySend(ch types.Value, v types.Value) (bool, error)
	TryRecv(ch types.Value) (types.Value, bool, error)
	Select(futures []types.Value, timeoutMs int, hasTimeout bool) (types.Value, error)
	Race(tasks []func() (types.Value, error)) (types.Value, error)
}

// EvalState is the mutable evaluation context threaded through a single
// program run (spec.md §4.6): the current environment, the ref-cell
// store, the effect registry/history, and the step counter shared by
// every nested evaluation (including child tasks, per spec.md §5).
type EvalState struct {
	Env *environ.Env

	RefCells map[string]*types.RefCell

	Operators *registry.Registry
	Defs      *environ.DefTable
	Effects   *registry.EffectRegistry

	Steps    *int
	MaxSteps int

	Resolver NodeResolver
	Exprs    ExprSource
	Async    AsyncHost
}

// NewState builds a fresh root evaluation state.
func NewState(ops *registry.Registry, defs *environ.DefTable, effects *registry.EffectRegistry, maxSteps int, resolver NodeResolver, exprs ExprSource) *EvalState {
	if maxSteps <= 0 {
		maxSteps = 10000
	}
	steps := 0
	return &EvalState{
		Env:       environ.Empty(),
		RefCells:  make(map[string]*types.RefCell),
		Operators: ops,
		Defs:      defs,
		Effects:   effects,
		Steps:     &steps,
		MaxSteps:  maxSteps,
		Resolver:  resolver,
		Exprs:     exprs,
	}
}

// WithEnv returns a shallow copy of the state bound to a different
// environment; every other field (ref cells, registries, step counter) is
// shared, since only lexical scope forks at let/lambda/for/iter/assign
// boundaries (spec.md §3).
func (s *EvalState) WithEnv(env *environ.Env) *EvalState {
	next := *s
	next.Env = env
	return &next
}

// tick increments the shared step counter and reports NonTermination once
// the budget is exhausted (spec.md §4.5, §5: "every evaluator tier
// increments a counter at each expression/block-entry").
func (s *EvalState) tick() error {
	*s.Steps++
	if *s.Steps > s.MaxSteps {
		return types.NewNonTermination(s.MaxSteps)
	}
	return nil
}

// resolveOperand resolves one operand position. A string operand names
// either a document node (resolved through the cache, so identity-bearing
// nodes like channels evaluate once per run) or, failing that, an
// environment binding. Order-sensitive node kinds — var, let, call — are
// re-evaluated in the current scope rather than read from the cache
// (spec.md §4.4, §4.8).
func resolveOperand(op document.Operand, s *EvalState) (types.Value, error) {
	if op.IsRef() {
		if op.NodeID == "" {
			return types.Value{}, types.NewDomainError("empty operand reference")
		}
		expr, err := s.Exprs.NodeExpr(op.NodeID)
		if err != nil {
			if v, ok := s.Env.Lookup(op.NodeID); ok {
				return v, nil
			}
			return types.Value{}, err
		}
		switch expr.(type) {
		case *document.VarExpr, *document.LetExpr, *document.CallExpr:
			return EvalExpr(expr, s)
		}
		return s.Resolver.ResolveNode(op.NodeID)
	}
	return EvalExpr(op.Inline, s)
}

// fetchBoundBody resolves a node-id into its raw expression tree, for the
// lambda-body / airDef-body case where the stored reference is a plain
// node id rather than an Operand.
func fetchBoundBody(s *EvalState, nodeID string) (document.Expr, error) {
	return s.Exprs.NodeExpr(nodeID)
}

func resolveOperands(ops []document.Operand, s *EvalState) ([]types.Value, error) {
	vals := make([]types.Value, len(ops))
	for i, op := range ops {
		v, err := resolveOperand(op, s)
		if err != nil {
			return nil, err
		}
		if v.IsError() {
			return nil, types.ErrorFromValue(v)
		}
		vals[i] = v
	}
	return vals, nil
}

func localLookup(localMap map[string]types.Value, s *EvalState, name string) (types.Value, error) {
	if localMap != nil {
		if v, ok := localMap[name]; ok {
			return v, nil
		}
	}
	if v, ok := s.Env.Lookup(name); ok {
		return v, nil
	}
	return types.Value{}, types.NewUnboundIdentifier(name)
}

// blockOperand resolves an op-instruction operand from the local map, the
// inherited environment, or the program-level node cache, in that order
// (spec.md §4.5).
func blockOperand(localMap map[string]types.Value, s *EvalState, name string) (types.Value, error) {
	v, err := localLookup(localMap, s, name)
	if err == nil {
		return v, nil
	}
	if cached, cerr := s.Resolver.ResolveNode(name); cerr == nil {
		return cached, nil
	}
	return types.Value{}, err
}

func errf(code func(string) *types.EvalError, format string, args ...interface{}) error {
	return code(fmt.Sprintf(format, args...))
}
