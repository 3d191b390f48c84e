package stdlib

import (
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func registerList(reg *registry.Registry) {
	reg.Register(&registry.Operator{
		NS: "list", Name: "len", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			switch args[0].Type() {
			case types.KindList:
				return types.NewInt(int64(len(args[0].AsList()))), nil
			case types.KindSet:
				return types.NewInt(int64(len(args[0].AsSet()))), nil
			default:
				return types.Value{}, types.NewTypeError("list:len requires a list or set")
			}
		},
	})

	reg.Register(&registry.Operator{
		NS: "list", Name: "get", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindList {
				return types.Value{}, types.NewTypeError("list:get requires a list")
			}
			if args[1].Type() != types.KindInt {
				return types.Value{}, types.NewTypeError("list:get index must be int")
			}
			items := args[0].AsList()
			idx := args[1].AsInt()
			if idx < 0 || idx >= int64(len(items)) {
				return types.Value{}, types.NewDomainError("list:get index out of range")
			}
			return items[idx], nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "list", Name: "append", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindList {
				return types.Value{}, types.NewTypeError("list:append requires a list")
			}
			items := args[0].AsList()
			next := make([]types.Value, len(items)+1)
			copy(next, items)
			next[len(items)] = args[1]
			return types.NewList(next), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "list", Name: "concat", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindList || args[1].Type() != types.KindList {
				return types.Value{}, types.NewTypeError("list:concat requires two lists")
			}
			a, b := args[0].AsList(), args[1].AsList()
			next := make([]types.Value, 0, len(a)+len(b))
			next = append(next, a...)
			next = append(next, b...)
			return types.NewList(next), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "list", Name: "slice", Arity: 3, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindList {
				return types.Value{}, types.NewTypeError("list:slice requires a list")
			}
			items := args[0].AsList()
			start, end := args[1].AsInt(), args[2].AsInt()
			if start < 0 || end > int64(len(items)) || start > end {
				return types.Value{}, types.NewDomainError("list:slice bounds out of range")
			}
			out := make([]types.Value, end-start)
			copy(out, items[start:end])
			return types.NewList(out), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "set", Name: "fromList", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindList {
				return types.Value{}, types.NewTypeError("set:fromList requires a list")
			}
			return types.NewSet(args[0].AsList()), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "set", Name: "contains", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindSet {
				return types.Value{}, types.NewTypeError("set:contains requires a set")
			}
			return types.NewBool(args[0].SetContainsHash(args[1].Hash())), nil
		},
	})
}
