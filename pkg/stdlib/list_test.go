package stdlib

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func newListRegistry() *registry.Registry {
	reg := registry.New()
	registerList(reg)
	return reg
}

func ints(ns ...int64) []types.Value {
	out := make([]types.Value, len(ns))
	for i, n := range ns {
		out[i] = types.NewInt(n)
	}
	return out
}

func TestListLenAndGet(t *testing.T) {
	reg := newListRegistry()
	l := types.NewList(ints(1, 2, 3))
	v, err := reg.Call("list", "len", []types.Value{l})
	if err != nil || v.AsInt() != 3 {
		t.Fatalf("list:len = %v, %v", v, err)
	}
	v, err = reg.Call("list", "get", []types.Value{l, types.NewInt(1)})
	if err != nil || v.AsInt() != 2 {
		t.Fatalf("list:get = %v, %v", v, err)
	}
}

func TestListGetOutOfRange(t *testing.T) {
	reg := newListRegistry()
	l := types.NewList(ints(1))
	if _, err := reg.Call("list", "get", []types.Value{l, types.NewInt(5)}); err == nil {
		t.Fatalf("expected domain error for out-of-range index")
	}
}

func TestListAppendDoesNotMutateOriginal(t *testing.T) {
	reg := newListRegistry()
	l := types.NewList(ints(1, 2))
	appended, err := reg.Call("list", "append", []types.Value{l, types.NewInt(3)})
	if err != nil {
		t.Fatalf("list:append: %v", err)
	}
	if len(l.AsList()) != 2 {
		t.Fatalf("original list was mutated, len=%d", len(l.AsList()))
	}
	if len(appended.AsList()) != 3 || appended.AsList()[2].AsInt() != 3 {
		t.Fatalf("unexpected appended list: %+v", appended.AsList())
	}
}

func TestListConcat(t *testing.T) {
	reg := newListRegistry()
	v, err := reg.Call("list", "concat", []types.Value{types.NewList(ints(1, 2)), types.NewList(ints(3))})
	if err != nil {
		t.Fatalf("list:concat: %v", err)
	}
	if len(v.AsList()) != 3 {
		t.Fatalf("expected concat len 3, got %d", len(v.AsList()))
	}
}

func TestListSliceBounds(t *testing.T) {
	reg := newListRegistry()
	l := types.NewList(ints(1, 2, 3, 4))
	v, err := reg.Call("list", "slice", []types.Value{l, types.NewInt(1), types.NewInt(3)})
	if err != nil {
		t.Fatalf("list:slice: %v", err)
	}
	got := v.AsList()
	if len(got) != 2 || got[0].AsInt() != 2 || got[1].AsInt() != 3 {
		t.Fatalf("unexpected slice: %+v", got)
	}
	if _, err := reg.Call("list", "slice", []types.Value{l, types.NewInt(3), types.NewInt(1)}); err == nil {
		t.Fatalf("expected domain error for start > end")
	}
}

func TestSetFromListAndContains(t *testing.T) {
	reg := newListRegistry()
	set, err := reg.Call("set", "fromList", []types.Value{types.NewList(ints(1, 2, 2))})
	if err != nil {
		t.Fatalf("set:fromList: %v", err)
	}
	has, err := reg.Call("set", "contains", []types.Value{set, types.NewInt(2)})
	if err != nil || !has.AsBool() {
		t.Fatalf("expected set to contain 2, got %v, %v", has, err)
	}
	has, err = reg.Call("set", "contains", []types.Value{set, types.NewInt(9)})
	if err != nil || has.AsBool() {
		t.Fatalf("expected set not to contain 9, got %v, %v", has, err)
	}
}
