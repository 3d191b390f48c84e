package stdlib

import (
	"testing"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func TestRegisterInstallsEveryNamespace(t *testing.T) {
	reg := registry.New()
	Register(reg)

	cases := []struct {
		ns, name string
		args     []types.Value
	}{
		{"core", "add", []types.Value{types.NewInt(1), types.NewInt(1)}},
		{"list", "len", []types.Value{types.NewList(nil)}},
		{"map", "len", []types.Value{types.NewMap(types.NewOrderedMap())}},
		{"text", "len", []types.Value{types.NewString("")}},
		{"hash", "of", []types.Value{types.NewInt(1)}},
		{"uuid", "v4", nil},
		{"base64", "encode", []types.Value{types.NewString("")}},
		{"json", "encode", []types.Value{types.NewInt(1)}},
		{"set", "fromList", []types.Value{types.NewList(nil)}},
		{"option", "isSome", []types.Value{types.NoneOption}},
	}
	for _, c := range cases {
		if _, err := reg.Call(c.ns, c.name, c.args); err != nil {
			t.Fatalf("%s:%s unexpectedly failed after Register: %v", c.ns, c.name, err)
		}
	}
}
