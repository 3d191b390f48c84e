package stdlib

import (
	"strconv"
	"strings"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func registerText(reg *registry.Registry) {
	reg.Register(&registry.Operator{
		NS: "text", Name: "concat", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString || args[1].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:concat requires two strings")
			}
			return types.NewString(args[0].AsString() + args[1].AsString()), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "len", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:len requires a string")
			}
			return types.NewInt(int64(len(args[0].AsString()))), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "upper", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:upper requires a string")
			}
			return types.NewString(strings.ToUpper(args[0].AsString())), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "lower", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:lower requires a string")
			}
			return types.NewString(strings.ToLower(args[0].AsString())), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "split", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString || args[1].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:split requires two strings")
			}
			parts := strings.Split(args[0].AsString(), args[1].AsString())
			out := make([]types.Value, len(parts))
			for i, p := range parts {
				out[i] = types.NewString(p)
			}
			return types.NewList(out), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "contains", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString || args[1].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:contains requires two strings")
			}
			return types.NewBool(strings.Contains(args[0].AsString(), args[1].AsString())), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "text", Name: "parseInt", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("text:parseInt requires a string")
			}
			n, err := strconv.ParseInt(args[0].AsString(), 10, 64)
			if err != nil {
				return types.Value{}, types.NewDomainError("text:parseInt: " + err.Error())
			}
			return types.NewInt(n), nil
		},
	})
}
