package stdlib

import (
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func registerMap(reg *registry.Registry) {
	reg.Register(&registry.Operator{
		NS: "map", Name: "get", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			m, key, err := mapAndKey(args)
			if err != nil {
				return types.Value{}, err
			}
			v, ok := m.Get(key)
			if !ok {
				return types.NoneOption, nil
			}
			return types.NewOption(v), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "map", Name: "set", Arity: 3, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindMap || args[1].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("map:set requires (map, string, value)")
			}
			m := args[0].AsMap().Clone()
			m.Set(args[1].AsString(), args[2])
			return types.NewMap(m), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "map", Name: "delete", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindMap || args[1].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("map:delete requires (map, string)")
			}
			m := args[0].AsMap().Clone()
			m.Delete(args[1].AsString())
			return types.NewMap(m), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "map", Name: "keys", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindMap {
				return types.Value{}, types.NewTypeError("map:keys requires a map")
			}
			keys := args[0].AsMap().Keys()
			out := make([]types.Value, len(keys))
			for i, k := range keys {
				out[i] = types.NewString(k)
			}
			return types.NewList(out), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "map", Name: "len", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindMap {
				return types.Value{}, types.NewTypeError("map:len requires a map")
			}
			return types.NewInt(int64(args[0].AsMap().Len())), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "map", Name: "has", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			m, key, err := mapAndKey(args)
			if err != nil {
				return types.Value{}, err
			}
			_, ok := m.Get(key)
			return types.NewBool(ok), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "option", Name: "isSome", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindOption {
				return types.Value{}, types.NewTypeError("option:isSome requires an option")
			}
			_, ok := args[0].AsOption()
			return types.NewBool(ok), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "option", Name: "unwrap", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindOption {
				return types.Value{}, types.NewTypeError("option:unwrap requires an option")
			}
			v, ok := args[0].AsOption()
			if !ok {
				return types.Value{}, types.NewDomainError("option:unwrap on none")
			}
			return v, nil
		},
	})
}

func mapAndKey(args []types.Value) (*types.OrderedMap, string, error) {
	if args[0].Type() != types.KindMap || args[1].Type() != types.KindString {
		return nil, "", types.NewTypeError("expected (map, string)")
	}
	return args[0].AsMap(), args[1].AsString(), nil
}
