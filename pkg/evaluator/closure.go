package evaluator

import (
	"strconv"

	"github.com/spiral-lang/spiral/pkg/document"
	"github.com/spiral-lang/spiral/pkg/environ"
	"github.com/spiral-lang/spiral/pkg/types"
)

// ApplyClosure implements the closure application protocol (spec.md
// §4.4): arity-checks args against required/optional parameters, binds
// defaults evaluated in the closure's captured environment, and runs the
// body in the resulting extended environment.
func ApplyClosure(s *EvalState, c *types.Closure, args []types.Value) (types.Value, error) {
	required := 0
	for _, p := range c.Params {
		if !p.Optional {
			required++
		}
	}
	if len(args) < required {
		return types.Value{}, types.NewArityError("too few arguments: closure requires at least " + strconv.Itoa(required))
	}
	if len(args) > len(c.Params) {
		return types.Value{}, types.NewArityError("too many arguments: closure accepts at most " + strconv.Itoa(len(c.Params)))
	}

	capturedEnv, _ := c.Env.(*environ.Env)
	callState := s.WithEnv(capturedEnv)

	bodyEnv := capturedEnv
	for i, p := range c.Params {
		if i < len(args) {
			bodyEnv = bodyEnv.Extend(p.Name, args[i])
			continue
		}
		if p.Default != nil {
			defOp, ok := p.Default.(*document.Operand)
			if !ok {
				return types.Value{}, types.NewDomainError("closure parameter default is not a decoded operand")
			}
			defVal, err := resolveOperand(*defOp, callState)
			if err != nil {
				return types.Value{}, err
			}
			bodyEnv = bodyEnv.Extend(p.Name, defVal)
			continue
		}
		bodyEnv = bodyEnv.Extend(p.Name, types.NoneOption)
	}

	bodyID, ok := c.Body.(string)
	if !ok {
		return types.Value{}, types.NewDomainError("closure body is not a node id")
	}
	bodyExpr, err := fetchBoundBody(s, bodyID)
	if err != nil {
		return types.Value{}, err
	}
	return EvalExpr(bodyExpr, s.WithEnv(bodyEnv))
}

// evalFix implements the fixed-point construction (spec.md §4.4):
// `fix(f)` builds a self-referential closure by mutating a placeholder
// closure record in place so the final closure's captured environment
// closes over itself.
func evalFix(s *EvalState, e *document.FixExpr) (types.Value, error) {
	fnVal, err := resolveOperand(e.Fn, s)
	if err != nil {
		return types.Value{}, err
	}
	if fnVal.Type() != types.KindClosure {
		return types.Value{}, types.NewTypeError("fix target is not a closure")
	}
	fn := fnVal.AsClosure()
	if len(fn.Params) != 1 {
		return types.Value{}, types.NewDomainError("fix requires a single-parameter closure")
	}

	placeholder := &types.Closure{}
	result, err := ApplyClosure(s, fn, []types.Value{types.NewClosure(placeholder)})
	if err != nil {
		return types.Value{}, err
	}
	if result.Type() != types.KindClosure {
		return types.Value{}, types.NewDomainError("fix body did not produce a closure")
	}
	resolved := result.AsClosure()
	placeholder.Params = resolved.Params
	placeholder.Body = resolved.Body
	placeholder.Env = resolved.Env
	return types.NewClosure(placeholder), nil
}
