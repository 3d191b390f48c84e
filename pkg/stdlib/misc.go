package stdlib

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func registerMisc(reg *registry.Registry) {
	reg.Register(&registry.Operator{
		NS: "hash", Name: "of", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewString(args[0].Hash()), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "uuid", Name: "v4", Arity: 0, Pure: false,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewString(uuid.NewString()), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "base64", Name: "encode", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("base64:encode requires a string")
			}
			return types.NewString(base64.StdEncoding.EncodeToString([]byte(args[0].AsString()))), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "base64", Name: "decode", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("base64:decode requires a string")
			}
			raw, err := base64.StdEncoding.DecodeString(args[0].AsString())
			if err != nil {
				return types.Value{}, types.NewDomainError("base64:decode: " + err.Error())
			}
			return types.NewString(string(raw)), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "json", Name: "encode", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			raw, err := json.Marshal(args[0])
			if err != nil {
				return types.Value{}, types.NewDomainError("json:encode: " + err.Error())
			}
			return types.NewString(string(raw)), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "json", Name: "decode", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindString {
				return types.Value{}, types.NewTypeError("json:decode requires a string")
			}
			var decoded interface{}
			if err := json.Unmarshal([]byte(args[0].AsString()), &decoded); err != nil {
				return types.Value{}, types.NewDomainError("json:decode: " + err.Error())
			}
			return types.ValueFromJSON(decoded), nil
		},
	})
}
