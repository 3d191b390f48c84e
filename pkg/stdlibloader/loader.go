// Package stdlibloader implements the two-phase stdlib bootstrap (spec.md
// §4.9): validated CIR documents are evaluated with the driver against
// the running registry, their exported map is harvested, and each entry
// becomes a registry operator — a placeholder first (to support forward
// references within a batch), then the real closure-backed
// implementation once its defining document has run.
package stdlibloader

import (
	"fmt"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/driver"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/evaluator"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

// Module is one stdlib source document plus the namespace its exports
// are registered under.
type Module struct {
	NS  string
	Doc *document.Document
}

// Load runs phase 1 (placeholder registration) then phase 2 (document
// evaluation and real-operator installation) over a batch of modules.
func Load(reg *registry.Registry, defs *environ.DefTable, modules []Module) error {
	keys := make(map[string][]string, len(modules))

	for _, mod := range modules {
		exported := exportedNames(mod.Doc)
		keys[mod.NS] = exported
		for _, name := range exported {
			reg.Register(placeholderOperator(mod.NS, name))
		}
	}

	for _, mod := range modules {
		result, err := driver.Evaluate(mod.Doc, reg, defs, driver.Options{})
		if err != nil {
			return fmt.Errorf("stdlib module %q: %w", mod.NS, err)
		}
		if result.Value.IsError() {
			return fmt.Errorf("stdlib module %q failed: %s", mod.NS, result.Value.AsError().Error())
		}
		if result.Value.Type() != types.KindMap {
			return fmt.Errorf("stdlib module %q must export a map, got %s", mod.NS, result.Value.Type())
		}
		exports := result.Value.AsMap()
		for _, name := range keys[mod.NS] {
			v, ok := exports.Get(name)
			if !ok {
				return fmt.Errorf("stdlib module %q: declared export %q missing from result", mod.NS, name)
			}
			reg.Register(wrapExport(mod.NS, name, v, result.State))
		}
	}
	return nil
}

// exportedNames uses the document's result node, if already a literal
// record at decode time, to discover its field names ahead of evaluation;
// most stdlib documents build their export map via a `record` node whose
// field keys are known statically without running the evaluator.
func exportedNames(doc *document.Document) []string {
	resultNode := doc.ByID(doc.Result)
	if resultNode == nil || resultNode.Expr == nil {
		return nil
	}
	rec, ok := resultNode.Expr.(*document.RecordExpr)
	if !ok {
		return nil
	}
	names := make([]string, len(rec.Fields))
	for i, f := range rec.Fields {
		names[i] = f.Key
	}
	return names
}

// placeholderOperator fails loudly if invoked before phase 2 installs the
// real implementation (spec.md §4.9: "failing loudly if invoked
// prematurely").
func placeholderOperator(ns, name string) *registry.Operator {
	return &registry.Operator{
		NS: ns, Name: name, Arity: -1,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.Value{}, types.NewDomainError(fmt.Sprintf("stdlib operator %s:%s invoked before its module finished loading", ns, name))
		},
	}
}

// wrapExport turns a harvested Value into a registry operator. Closures
// are invoked through the expression evaluator's application protocol,
// reusing the defining document's resolver/expr-source so the closure's
// body (a bound node id, per spec.md §4.8) can still be fetched after
// the module's own evaluation run has finished. Non-closure literals are
// returned as constants regardless of arguments.
func wrapExport(ns, name string, v types.Value, defining *evaluator.EvalState) *registry.Operator {
	if v.Type() != types.KindClosure {
		constant := v
		return &registry.Operator{
			NS: ns, Name: name, Arity: 0, Pure: true,
			Impl: func(args []types.Value) (types.Value, error) { return constant, nil },
		}
	}
	closure := v.AsClosure()
	return &registry.Operator{
		NS: ns, Name: name, Arity: len(closure.Params), Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			callState := evaluator.NewState(defining.Operators, defining.Defs, defining.Effects, defining.MaxSteps, defining.Resolver, defining.Exprs)
			callState.Async = defining.Async
			return evaluator.ApplyClosure(callState, closure, args)
		},
	}
}
