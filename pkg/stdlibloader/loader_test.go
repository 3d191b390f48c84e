package stdlibloader

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func mustDecode(t *testing.T, raw string) *document.Document {
	t.Helper()
	doc, err := document.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return doc
}

func TestLoadInstallsClosureExportAsOperator(t *testing.T) {
	// A single-module stdlib document exporting a "double" function: the
	// record's field value is a lambda node-id; Load must harvest "double"
	// and wire it into the registry as a callable operator.
	doc := mustDecode(t, `{
		"version": "1",
		"nodes": [
			{"id":"body","kind":"call","ns":"core","name":"add","args":[{"kind":"var","name":"x"},{"kind":"var","name":"x"}]},
			{"id":"double","kind":"lambda","params":[{"name":"x"}],"body":"body"},
			{"id":"exports","kind":"record","fields":[{"key":"double","value":{"kind":"ref","id":"double"}}]}
		],
		"result": "exports"
	}`)

	reg := registry.New()
	reg.Register(&registry.Operator{
		NS: "core", Name: "add", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewInt(args[0].AsInt() + args[1].AsInt()), nil
		},
	})
	defs := environ.NewDefTable(nil)

	if err := Load(reg, defs, []Module{{NS: "math", Doc: doc}}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, err := reg.Call("math", "double", []types.Value{types.NewInt(21)})
	if err != nil {
		t.Fatalf("math:double: %v", err)
	}
	if v.AsInt() != 42 {
		t.Fatalf("expected 42, got %d", v.AsInt())
	}
}

func TestLoadInstallsConstantExport(t *testing.T) {
	doc := mustDecode(t, `{
		"version": "1",
		"nodes": [
			{"id":"exports","kind":"record","fields":[{"key":"pi","value":{"kind":"lit","type":{"kind":"float"},"value":3.5}}]}
		],
		"result": "exports"
	}`)

	reg := registry.New()
	defs := environ.NewDefTable(nil)
	if err := Load(reg, defs, []Module{{NS: "math", Doc: doc}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := reg.Call("math", "pi", nil)
	if err != nil {
		t.Fatalf("math:pi: %v", err)
	}
	if v.AsFloat() != 3.5 {
		t.Fatalf("expected 3.5, got %v", v.AsFloat())
	}
}

func TestLoadFailsWhenResultIsNotMap(t *testing.T) {
	// The module's result is an int literal, so Load's result-type guard
	// rejects it. (A declared-but-missing export is impractical to coax
	// from JSON, since exportedNames reads the same record the evaluator
	// builds.)
	doc := mustDecode(t, `{
		"version": "1",
		"nodes": [
			{"id":"exports","kind":"lit","type":{"kind":"int"},"value":1}
		],
		"result": "exports"
	}`)
	reg := registry.New()
	defs := environ.NewDefTable(nil)
	if err := Load(reg, defs, []Module{{NS: "bad", Doc: doc}}); err == nil {
		t.Fatalf("expected error when module result is not a map")
	}
}

func TestPlaceholderOperatorFailsBeforeRealInstall(t *testing.T) {
	op := placeholderOperator("math", "double")
	if _, err := op.Impl(nil); err == nil {
		t.Fatalf("expected placeholder operator to fail when invoked")
	}
}

func TestLoadSupportsForwardReferenceAcrossBatch(t *testing.T) {
	// "b" module's export references "a" module's export by namespace-
	// qualified call; phase 1 must register a's placeholder before b runs,
	// and phase 2 for b must succeed since a's real operator installs
	// before b's document is evaluated (modules run in slice order).
	docA := mustDecode(t, `{
		"version": "1",
		"nodes": [
			{"id":"exports","kind":"record","fields":[{"key":"one","value":{"kind":"lit","type":{"kind":"int"},"value":1}}]}
		],
		"result": "exports"
	}`)
	docB := mustDecode(t, `{
		"version": "1",
		"nodes": [
			{"id":"body","kind":"call","ns":"a","name":"one","args":[]},
			{"id":"exports","kind":"record","fields":[{"key":"passthrough","value":{"kind":"ref","id":"body"}}]}
		],
		"result": "exports"
	}`)

	reg := registry.New()
	defs := environ.NewDefTable(nil)
	if err := Load(reg, defs, []Module{{NS: "a", Doc: docA}, {NS: "b", Doc: docB}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	v, err := reg.Call("b", "passthrough", nil)
	if err != nil {
		t.Fatalf("b:passthrough: %v", err)
	}
	if v.AsInt() != 1 {
		t.Fatalf("expected 1, got %d", v.AsInt())
	}
}
