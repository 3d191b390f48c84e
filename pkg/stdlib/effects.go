package stdlib

import (
	"fmt"
	"io"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

// RegisterEffects installs the effect handlers available to `effect`
// nodes (spec.md §4.3, §4.6): print (immediate) and log (registered as
// queued). Both write their arguments to w when invoked, rather than
// directly to stdout, so callers (tests, the CLI, the HTTP API) can
// capture it.
func RegisterEffects(reg *registry.EffectRegistry, w io.Writer) {
	reg.Register(&registry.EffectOp{
		Name: "print",
		Impl: func(args []types.Value) (types.Value, error) {
			for _, a := range args {
				fmt.Fprint(w, a.String())
			}
			fmt.Fprintln(w)
			return types.Value{}, nil
		},
	})

	reg.Register(&registry.EffectOp{
		Name:   "log",
		Queued: true,
		Impl: func(args []types.Value) (types.Value, error) {
			for _, a := range args {
				fmt.Fprint(w, a.String())
			}
			fmt.Fprintln(w)
			return types.Value{}, nil
		},
	})
}
