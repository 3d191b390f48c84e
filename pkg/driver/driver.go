// Package driver implements the program-level evaluation entrypoint
// (spec.md §4.8): building a node index, classifying bound nodes that
// must not be pre-evaluated, walking the document in source order, and
// resolving the result node against a per-run cache.
package driver

import (
	"github.com/spiral-lang/spiral/pkg/async"
	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/evaluator"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

// Options controls one evaluation invocation (spec.md §6).
type Options struct {
	MaxSteps int
	Trace    bool
	Effects  *registry.EffectRegistry
	Inputs   *environ.Env
	Async    bool // enables the PIR tier (spawn/await/par/channel/...)
}

// Result is the outcome of evaluating a document (spec.md §6).
type Result struct {
	Value types.Value
	State *evaluator.EvalState
}

// run binds a Document to a node cache and satisfies both
// evaluator.NodeResolver (cached, for `ref`) and evaluator.ExprSource
// (uncached, for bound-node lookups).
type run struct {
	doc       *document.Document
	state     *evaluator.EvalState
	cache     map[string]types.Value
	resolving map[string]bool
}

func (r *run) NodeExpr(id string) (document.Expr, error) {
	n := r.doc.ByID(id)
	if n == nil {
		return nil, types.NewDomainError("unknown node id " + id)
	}
	if n.Expr == nil {
		return nil, types.NewDomainError("node " + id + " is not an expression node")
	}
	return n.Expr, nil
}

func (r *run) ResolveNode(id string) (types.Value, error) {
	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	if r.resolving[id] {
		return types.Value{}, types.NewDomainError("cyclic node reference at " + id)
	}
	n := r.doc.ByID(id)
	if n == nil {
		return types.Value{}, types.NewDomainError("unknown node id " + id)
	}
	r.resolving[id] = true
	v, err := r.evalNode(n)
	delete(r.resolving, id)
	if err != nil {
		if ee, ok := err.(*types.EvalError); ok {
			r.cache[id] = ee.ToValue()
			return types.Value{}, ee
		}
		return types.Value{}, err
	}
	r.cache[id] = v
	return v, nil
}

func (r *run) evalNode(n *document.Node) (types.Value, error) {
	if n.IsBlock() {
		return evaluator.EvalBlock(n.Block, r.state)
	}
	return evaluator.EvalExpr(n.Expr, r.state)
}

// boundNodes computes the set of node ids that are referenced exclusively
// as lambda bodies, airDef bodies, or let/match subexpressions — nodes
// that must not be pre-evaluated at program level because they depend on
// a dynamic scope that only exists when the referencing construct runs
// (spec.md §4.8 point 2).
func boundNodes(doc *document.Document) map[string]bool {
	bound := make(map[string]bool)
	var markOperand func(op document.Operand)
	var markExpr func(e document.Expr)

	markOperand = func(op document.Operand) {
		if op.IsRef() {
			if op.NodeID != "" {
				bound[op.NodeID] = true
			}
			return
		}
		markExpr(op.Inline)
	}

	markExpr = func(e document.Expr) {
		switch v := e.(type) {
		case *document.LetExpr:
			bound[nodeIDOf(v.Value)] = true
			bound[nodeIDOf(v.Body)] = true
			markOperand(v.Value)
			markOperand(v.Body)
		case *document.MatchExpr:
			markOperand(v.Scrutinee)
			for _, c := range v.Cases {
				bound[nodeIDOf(c.Body)] = true
				markOperand(c.Body)
			}
			if v.Default != nil {
				bound[nodeIDOf(*v.Default)] = true
				markOperand(*v.Default)
			}
		case *document.LambdaExpr:
			if v.Body != "" {
				bound[v.Body] = true
			}
		}
	}

	for _, n := range doc.Nodes {
		if n.Expr != nil {
			markExpr(n.Expr)
		}
	}
	for _, d := range doc.AirDefs {
		if d.Body != "" {
			bound[d.Body] = true
		}
	}
	return bound
}

func nodeIDOf(op document.Operand) string {
	if op.IsRef() {
		return op.NodeID
	}
	return ""
}

// Evaluate is the `evaluate(document, operatorRegistry, defs, inputs?,
// options?) -> {result, state}` entrypoint (spec.md §6).
func Evaluate(doc *document.Document, ops *registry.Registry, defs *environ.DefTable, opts Options) (Result, error) {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 10000
	}
	r := &run{
		doc:       doc,
		cache:     make(map[string]types.Value),
		resolving: make(map[string]bool),
	}

	// The document's own airDefs shadow caller-provided definitions of the
	// same (ns, name).
	if len(doc.AirDefs) > 0 {
		converted := make([]*environ.Def, len(doc.AirDefs))
		for i, d := range doc.AirDefs {
			params := make([]environ.DefParam, len(d.Params))
			for j, p := range d.Params {
				params[j] = environ.DefParam{Name: p.Name, Optional: p.Optional}
				if p.Default != nil {
					params[j].Default = p.Default
				}
			}
			converted[i] = &environ.Def{NS: d.NS, Name: d.Name, Params: params, Body: d.Body}
		}
		defs = defs.With(converted)
	}

	effects := opts.Effects
	if effects == nil {
		effects = registry.NewEffectRegistry()
	}
	state := evaluator.NewState(ops, defs, effects, opts.MaxSteps, r, r)
	if opts.Inputs != nil {
		state.Env = opts.Inputs
	}
	if opts.Async {
		state.Async = async.New()
	}
	r.state = state

	bound := boundNodes(doc)
	for _, n := range doc.Nodes {
		if bound[n.ID] {
			continue
		}
		if _, ok := r.cache[n.ID]; ok {
			continue
		}
		if _, err := r.ResolveNode(n.ID); err != nil {
			// Errors are cached as Error values and threading continues so
			// later nodes (and the result lookup) can still reference them.
			continue
		}
	}

	result, err := r.ResolveNode(doc.Result)
	if err != nil {
		if ee, ok := err.(*types.EvalError); ok {
			return Result{Value: ee.ToValue(), State: state}, nil
		}
		return Result{}, err
	}
	return Result{Value: result, State: state}, nil
}
