// Package stdlib registers SPIRAL's built-in primitive operators and
// effect handlers — the concrete implementations behind the "core",
// "list", "map", "text", "hash", and related namespaces that documents
// invoke through `call`/`effect` nodes. This is an external collaborator
// to the evaluator core (spec.md §4.9): the evaluator only ever sees
// registry.Operator/EffectOp values, never these functions directly.
package stdlib

import (
	"fmt"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func registerCore(reg *registry.Registry) {
	arith := func(name string, fn func(a, b types.Value) (types.Value, error)) {
		reg.Register(&registry.Operator{
			NS: "core", Name: name, Arity: 2, Pure: true,
			Impl: func(args []types.Value) (types.Value, error) { return fn(args[0], args[1]) },
		})
	}

	arith("add", numOp(func(a, b float64) float64 { return a + b }, func(a, b int64) int64 { return a + b }))
	arith("sub", numOp(func(a, b float64) float64 { return a - b }, func(a, b int64) int64 { return a - b }))
	arith("mul", numOp(func(a, b float64) float64 { return a * b }, func(a, b int64) int64 { return a * b }))

	reg.Register(&registry.Operator{NS: "core", Name: "div", Arity: 2, Pure: true, Impl: divOp})
	reg.Register(&registry.Operator{NS: "core", Name: "mod", Arity: 2, Pure: true, Impl: modOp})

	cmp := func(name string, fn func(a, b types.Value) (bool, error)) {
		reg.Register(&registry.Operator{
			NS: "core", Name: name, Arity: 2, Pure: true,
			Impl: func(args []types.Value) (types.Value, error) {
				b, err := fn(args[0], args[1])
				if err != nil {
					return types.Value{}, err
				}
				return types.NewBool(b), nil
			},
		})
	}
	cmp("eq", func(a, b types.Value) (bool, error) { return a.Equal(b), nil })
	cmp("neq", func(a, b types.Value) (bool, error) { return !a.Equal(b), nil })
	cmp("lt", numCompare(func(a, b float64) bool { return a < b }))
	cmp("lte", numCompare(func(a, b float64) bool { return a <= b }))
	cmp("gt", numCompare(func(a, b float64) bool { return a > b }))
	cmp("gte", numCompare(func(a, b float64) bool { return a >= b }))

	reg.Register(&registry.Operator{
		NS: "core", Name: "and", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindBool || args[1].Type() != types.KindBool {
				return types.Value{}, types.NewTypeError("and requires bool operands")
			}
			return types.NewBool(args[0].AsBool() && args[1].AsBool()), nil
		},
	})
	reg.Register(&registry.Operator{
		NS: "core", Name: "or", Arity: 2, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindBool || args[1].Type() != types.KindBool {
				return types.Value{}, types.NewTypeError("or requires bool operands")
			}
			return types.NewBool(args[0].AsBool() || args[1].AsBool()), nil
		},
	})
	reg.Register(&registry.Operator{
		NS: "core", Name: "not", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			if args[0].Type() != types.KindBool {
				return types.Value{}, types.NewTypeError("not requires a bool operand")
			}
			return types.NewBool(!args[0].AsBool()), nil
		},
	})

	// isError is the error-inspecting primitive named in spec.md §4.4/§7:
	// it receives Error values as ordinary arguments rather than
	// short-circuiting on them.
	reg.Register(&registry.Operator{
		NS: "core", Name: "isError", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewBool(args[0].IsError()), nil
		},
	})

	reg.Register(&registry.Operator{
		NS: "core", Name: "toString", Arity: 1, Pure: true,
		Impl: func(args []types.Value) (types.Value, error) {
			return types.NewString(args[0].String()), nil
		},
	})
}

func numOp(floatFn func(a, b float64) float64, intFn func(a, b int64) int64) func(a, b types.Value) (types.Value, error) {
	return func(a, b types.Value) (types.Value, error) {
		if a.Type() == types.KindInt && b.Type() == types.KindInt {
			return types.NewInt(intFn(a.AsInt(), b.AsInt())), nil
		}
		af, ok1 := a.AsNumber()
		bf, ok2 := b.AsNumber()
		if !ok1 || !ok2 {
			return types.Value{}, types.NewTypeError("arithmetic requires numeric operands")
		}
		return types.NewFloat(floatFn(af, bf)), nil
	}
}

func numCompare(fn func(a, b float64) bool) func(a, b types.Value) (bool, error) {
	return func(a, b types.Value) (bool, error) {
		af, ok1 := a.AsNumber()
		bf, ok2 := b.AsNumber()
		if !ok1 || !ok2 {
			return false, types.NewTypeError("comparison requires numeric operands")
		}
		return fn(af, bf), nil
	}
}

func divOp(args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	if a.Type() == types.KindInt && b.Type() == types.KindInt {
		if b.AsInt() == 0 {
			return types.Value{}, types.NewDivideByZero()
		}
		return types.NewInt(a.AsInt() / b.AsInt()), nil
	}
	af, ok1 := a.AsNumber()
	bf, ok2 := b.AsNumber()
	if !ok1 || !ok2 {
		return types.Value{}, types.NewTypeError("div requires numeric operands")
	}
	if bf == 0 {
		return types.Value{}, types.NewDivideByZero()
	}
	return types.NewFloat(af / bf), nil
}

func modOp(args []types.Value) (types.Value, error) {
	a, b := args[0], args[1]
	if a.Type() != types.KindInt || b.Type() != types.KindInt {
		return types.Value{}, types.NewTypeError("mod requires int operands")
	}
	if b.AsInt() == 0 {
		return types.Value{}, types.NewDivideByZero()
	}
	return types.NewInt(a.AsInt() % b.AsInt()), nil
}

func requireArgs(args []types.Value, n int, op string) error {
	if len(args) != n {
		return types.NewArityError(fmt.Sprintf("%s expects %d args, got %d", op, n, len(args)))
	}
	return nil
}
