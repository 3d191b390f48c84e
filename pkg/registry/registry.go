// Package registry holds the shared operator and effect tables a document
// is evaluated against (spec.md §4.2, §4.3): namespaced primitive
// operators with arity/purity metadata, and side-effecting effect
// handlers whose invocations are recorded in order onto the evaluation
// state.
package registry

import (
	"fmt"
	"strconv"

	"github.com/spiral-lang/spiral/pkg/types"
)

// Impl is an operator or effect's callable implementation.
type Impl func(args []types.Value) (types.Value, error)

// Operator is a registered (namespace, name) primitive.
type Operator struct {
	NS       string
	Name     string
	Arity    int // -1 means variadic
	Pure     bool
	ParamTypes []string // advisory, not enforced beyond documentation
	ReturnType string
	Impl     Impl
}

type opKey struct{ ns, name string }

// Registry is the operator table, keyed by (namespace, name). Registration
// is additive and idempotent: re-registering the same key overwrites the
// prior entry (spec.md §4.2).
type Registry struct {
	ops map[opKey]*Operator
}

// New returns an empty operator registry.
func New() *Registry {
	return &Registry{ops: make(map[opKey]*Operator)}
}

// Register adds or overwrites an operator under its (NS, Name) key.
func (r *Registry) Register(op *Operator) {
	r.ops[opKey{op.NS, op.Name}] = op
}

// Lookup returns the operator registered under (ns, name).
func (r *Registry) Lookup(ns, name string) (*Operator, bool) {
	op, ok := r.ops[opKey{ns, name}]
	return op, ok
}

// Call invokes the operator's implementation after an arity check.
// Host-level panics from the implementation are caught here — the dispatch
// boundary of spec.md §7 — and converted to DomainError, preserving the
// panic message.
func (r *Registry) Call(ns, name string, args []types.Value) (result types.Value, err error) {
	op, ok := r.Lookup(ns, name)
	if !ok {
		return types.Value{}, types.NewUnknownOperator(ns + ":" + name)
	}
	if op.Arity >= 0 && len(args) != op.Arity {
		return types.Value{}, types.NewArityError(
			"operator " + ns + ":" + name + " expects arity " + strconv.Itoa(op.Arity))
	}
	defer func() {
		if p := recover(); p != nil {
			result = types.Value{}
			err = types.NewDomainError(fmt.Sprintf("operator %s:%s panicked: %v", ns, name, p))
		}
	}()
	return op.Impl(args)
}

// List returns every registered operator, in no particular order. Used by
// external tooling (the HTTP/gRPC front ends) to advertise what a running
// instance supports; the evaluator core never calls it.
func (r *Registry) List() []*Operator {
	out := make([]*Operator, 0, len(r.ops))
	for _, op := range r.ops {
		out = append(out, op)
	}
	return out
}

// EffectRecord is one entry of an effect history: the effect name, the
// arguments it was invoked with, and the value it returned.
type EffectRecord struct {
	Name   string
	Args   []types.Value
	Result types.Value
}

// EffectOp is a registered side-effecting handler. Immediate effects run
// their Impl synchronously; queued effects still run Impl (there is no
// separate replay engine in this evaluator); the Queued flag marks the
// registration only, and EffectRecord does not carry it, so the history
// does not distinguish the two kinds.
type EffectOp struct {
	Name   string
	Queued bool
	Impl   Impl
}

// EffectRegistry is the effect-name → EffectOp table plus the ordered
// history of executed effects for one evaluation (spec.md §4.3).
type EffectRegistry struct {
	ops     map[string]*EffectOp
	history []EffectRecord
}

// NewEffectRegistry returns an empty effect registry.
func NewEffectRegistry() *EffectRegistry {
	return &EffectRegistry{ops: make(map[string]*EffectOp)}
}

// Register adds or overwrites an effect handler.
func (r *EffectRegistry) Register(op *EffectOp) {
	r.ops[op.Name] = op
}

// Invoke runs the named effect and appends it to the history in
// invocation order, regardless of outcome (errors and panics are recorded
// with a void result; handler panics convert to DomainError per spec.md §7).
func (r *EffectRegistry) Invoke(name string, args []types.Value) (types.Value, error) {
	op, ok := r.ops[name]
	if !ok {
		return types.Value{}, types.NewUnknownOperator(name)
	}
	result, err := r.run(op, args)
	if err != nil {
		r.history = append(r.history, EffectRecord{Name: name, Args: args, Result: types.Value{}})
		return types.Value{}, err
	}
	r.history = append(r.history, EffectRecord{Name: name, Args: args, Result: result})
	return result, nil
}

func (r *EffectRegistry) run(op *EffectOp, args []types.Value) (result types.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = types.Value{}
			err = types.NewDomainError(fmt.Sprintf("effect %s panicked: %v", op.Name, p))
		}
	}()
	return op.Impl(args)
}

// History returns the ordered list of effects executed so far.
func (r *EffectRegistry) History() []EffectRecord {
	return r.history
}
