// Package environ implements SPIRAL's persistent lexical environment and
// the (namespace, name) definition table (spec.md §4.1). Both are
// immutable: extension always returns a new value, never mutates the
// receiver, so closures can capture a chain safely.
package environ

import "github.com/spiral-lang/spiral/pkg/types"

// Env is a persistent, singly-linked binding chain. The zero value is not
// a valid environment; use Empty().
type Env struct {
	name   string
	value  types.Value
	parent *Env
}

// Empty returns a fresh environment with no bindings.
func Empty() *Env { return nil }

// Extend returns a new environment with name bound to value, shadowing any
// existing binding of the same name. The receiver is left untouched.
func (e *Env) Extend(name string, value types.Value) *Env {
	return &Env{name: name, value: value, parent: e}
}

// Lookup walks the chain from most-recently-extended outward, returning
// the first binding found.
func (e *Env) Lookup(name string) (types.Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.name == name {
			return cur.value, true
		}
	}
	return types.Value{}, false
}

// Def is a named routine record: a parameter name list plus an opaque body
// (an expression tree from pkg/document, kept as interface{} here for the
// same reason types.Closure does — environ must stay import-free of
// pkg/document to avoid a cycle, since pkg/document does not need to know
// about environments).
type Def struct {
	NS     string
	Name   string
	Params []DefParam
	Body   interface{}
}

// DefParam mirrors the subset of document.Param that airRef/def dispatch
// actually needs: a name and an optional default expression.
type DefParam struct {
	Name     string
	Optional bool
	Default  interface{}
}

type defKey struct{ ns, name string }

// DefTable is a persistent (namespace, name) → Def mapping, built once per
// document and shared read-only across evaluation.
type DefTable struct {
	defs map[defKey]*Def
}

// NewDefTable builds a table from a flat list of definitions.
func NewDefTable(defs []*Def) *DefTable {
	t := &DefTable{defs: make(map[defKey]*Def, len(defs))}
	for _, d := range defs {
		t.defs[defKey{d.NS, d.Name}] = d
	}
	return t
}

// With returns a new table holding the receiver's definitions plus defs,
// which shadow same-keyed entries. The receiver is left untouched.
func (t *DefTable) With(defs []*Def) *DefTable {
	out := &DefTable{defs: make(map[defKey]*Def)}
	if t != nil {
		for k, v := range t.defs {
			out.defs[k] = v
		}
	}
	for _, d := range defs {
		out.defs[defKey{d.NS, d.Name}] = d
	}
	return out
}

// Lookup returns the definition registered under (ns, name).
func (t *DefTable) Lookup(ns, name string) (*Def, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.defs[defKey{ns, name}]
	return d, ok
}
