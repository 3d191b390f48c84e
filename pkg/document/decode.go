package document

import (
	"encoding/json"
	"fmt"
)

// rawType mirrors Type's JSON shape directly; unmarshaled without a custom
// UnmarshalJSON since every field is already optional-friendly.
type rawType struct {
	Kind        string     `json:"kind"`
	Of          *rawType   `json:"of,omitempty"`
	Elem        *rawType   `json:"elem,omitempty"`
	ElementType *rawType   `json:"elementType,omitempty"`
	Key         *rawType   `json:"key,omitempty"`
	Value       *rawType   `json:"value,omitempty"`
	Params      []*rawType `json:"params,omitempty"`
	Returns     *rawType   `json:"returns,omitempty"`
	Name        string     `json:"name,omitempty"`
}

func decodeType(rt *rawType) *Type {
	if rt == nil {
		return nil
	}
	t := &Type{
		Kind:    rt.Kind,
		Of:      decodeType(rt.Of),
		Elem:    decodeType(rt.Elem),
		EltTyp:  decodeType(rt.ElementType),
		Key:     decodeType(rt.Key),
		Value:   decodeType(rt.Value),
		Returns: decodeType(rt.Returns),
		Name:    rt.Name,
	}
	for _, p := range rt.Params {
		t.Params = append(t.Params, decodeType(p))
	}
	return t
}

// rawOperand captures both operand shapes: a bare JSON string is a node-id
// reference; a JSON object is an inline expression.
type rawOperand json.RawMessage

func decodeOperand(raw json.RawMessage) (Operand, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Operand{}, nil
	}
	var asStr string
	if err := json.Unmarshal(raw, &asStr); err == nil {
		return Operand{NodeID: asStr}, nil
	}
	expr, err := decodeExpr(raw)
	if err != nil {
		return Operand{}, err
	}
	return Operand{Inline: expr}, nil
}

func decodeOperands(raws []json.RawMessage) ([]Operand, error) {
	out := make([]Operand, len(raws))
	for i, r := range raws {
		op, err := decodeOperand(r)
		if err != nil {
			return nil, fmt.Errorf("operand %d: %w", i, err)
		}
		out[i] = op
	}
	return out, nil
}

// rawParam mirrors Param's JSON shape.
type rawParam struct {
	Name     string          `json:"name"`
	Optional bool            `json:"optional,omitempty"`
	Default  json.RawMessage `json:"default,omitempty"`
	Type     *rawType        `json:"type,omitempty"`
}

func decodeParams(raws []rawParam) ([]Param, error) {
	out := make([]Param, len(raws))
	for i, rp := range raws {
		p := Param{Name: rp.Name, Optional: rp.Optional, Type: decodeType(rp.Type)}
		if len(rp.Default) > 0 {
			def, err := decodeOperand(rp.Default)
			if err != nil {
				return nil, fmt.Errorf("param %q default: %w", rp.Name, err)
			}
			p.Default = &def
		}
		out[i] = p
	}
	return out, nil
}

// rawField/rawCase mirror RecordField/MatchCase JSON shapes.
type rawField struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

type rawCase struct {
	Value string          `json:"value"`
	Body  json.RawMessage `json:"body"`
}

// rawExpr is a flat superset struct carrying every field that appears on
// any expression-tier node, keyed by JSON name. Decoding dispatches on Kind
// and reads only the fields that kind defines; this avoids one
// UnmarshalJSON method per expression type for what is, in effect, a single
// tagged union (spec.md §3).
type rawExpr struct {
	Kind string `json:"kind"`

	// lit
	Type  *rawType        `json:"type,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	// ref / var / refCell / deref / assign target
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Target string `json:"target,omitempty"`

	// call / airRef
	NS   string            `json:"ns,omitempty"`
	Args []json.RawMessage `json:"args,omitempty"`

	// if
	Cond json.RawMessage `json:"cond,omitempty"`
	Then json.RawMessage `json:"then,omitempty"`
	Else json.RawMessage `json:"else,omitempty"`

	// let
	Body json.RawMessage `json:"body,omitempty"`

	// predicate
	Ref string `json:"ref,omitempty"`

	// do / listOf
	Exprs    []json.RawMessage `json:"exprs,omitempty"`
	Elements []json.RawMessage `json:"elements,omitempty"`

	// record
	Fields []rawField `json:"fields,omitempty"`

	// match
	Scrutinee json.RawMessage `json:"scrutinee,omitempty"`
	Cases     []rawCase       `json:"cases,omitempty"`
	Default   json.RawMessage `json:"default,omitempty"`

	// lambda
	Params []rawParam `json:"params,omitempty"`

	// callExpr
	Fn json.RawMessage `json:"fn,omitempty"`

	// seq
	First json.RawMessage `json:"first,omitempty"`

	// while / for / iter
	Var      string          `json:"var,omitempty"`
	Init     json.RawMessage `json:"init,omitempty"`
	Update   json.RawMessage `json:"update,omitempty"`
	Iterable json.RawMessage `json:"iterable,omitempty"`

	// try
	TryBody    json.RawMessage `json:"tryBody,omitempty"`
	CatchParam string          `json:"catchParam,omitempty"`
	CatchBody  json.RawMessage `json:"catchBody,omitempty"`
	Fallback   json.RawMessage `json:"fallback,omitempty"`

	// par / race
	Branches []json.RawMessage `json:"branches,omitempty"`
	Tasks    []json.RawMessage `json:"tasks,omitempty"`

	// spawn / await
	Future json.RawMessage `json:"future,omitempty"`

	// channel
	ChannelKind string `json:"channelKind,omitempty"`

	// send / recv
	Channel json.RawMessage `json:"channel,omitempty"`

	// select
	Futures []json.RawMessage `json:"futures,omitempty"`
	Timeout json.RawMessage   `json:"timeout,omitempty"`
}

// decodeExpr dispatches a raw JSON expression object to its concrete Expr
// type based on the "kind" discriminator.
func decodeExpr(raw json.RawMessage) (Expr, error) {
	var r rawExpr
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}

	one := func(rm json.RawMessage) (Operand, error) { return decodeOperand(rm) }
	many := func(rms []json.RawMessage) ([]Operand, error) { return decodeOperands(rms) }

	switch r.Kind {
	case "lit":
		var v interface{}
		if len(r.Value) > 0 {
			if err := json.Unmarshal(r.Value, &v); err != nil {
				return nil, fmt.Errorf("lit value: %w", err)
			}
		}
		return &LitExpr{Type: decodeType(r.Type), Value: v}, nil

	case "ref":
		return &RefExpr{ID: r.ID}, nil

	case "var":
		return &VarExpr{Name: r.Name}, nil

	case "call":
		args, err := many(r.Args)
		if err != nil {
			return nil, err
		}
		return &CallExpr{NS: r.NS, Name: r.Name, Args: args}, nil

	case "if":
		cond, err := one(r.Cond)
		if err != nil {
			return nil, err
		}
		thenOp, err := one(r.Then)
		if err != nil {
			return nil, err
		}
		elseOp, err := one(r.Else)
		if err != nil {
			return nil, err
		}
		return &IfExpr{Cond: cond, Then: thenOp, Else: elseOp}, nil

	case "let":
		val, err := one(r.Value0())
		if err != nil {
			return nil, err
		}
		body, err := one(r.Body)
		if err != nil {
			return nil, err
		}
		return &LetExpr{Name: r.Name, Value: val, Body: body}, nil

	case "airRef":
		args, err := many(r.Args)
		if err != nil {
			return nil, err
		}
		return &AirRefExpr{NS: r.NS, Name: r.Name, Args: args}, nil

	case "predicate":
		return &PredicateExpr{Ref: r.Ref}, nil

	case "do":
		exprs, err := many(r.Exprs)
		if err != nil {
			return nil, err
		}
		return &DoExpr{Exprs: exprs}, nil

	case "record":
		fields := make([]RecordField, len(r.Fields))
		for i, f := range r.Fields {
			v, err := one(f.Value)
			if err != nil {
				return nil, fmt.Errorf("record field %q: %w", f.Key, err)
			}
			fields[i] = RecordField{Key: f.Key, Value: v}
		}
		return &RecordExpr{Fields: fields}, nil

	case "listOf":
		elems, err := many(r.Elements)
		if err != nil {
			return nil, err
		}
		return &ListOfExpr{Elements: elems}, nil

	case "match":
		scrut, err := one(r.Scrutinee)
		if err != nil {
			return nil, err
		}
		cases := make([]MatchCase, len(r.Cases))
		for i, c := range r.Cases {
			b, err := one(c.Body)
			if err != nil {
				return nil, fmt.Errorf("match case %q: %w", c.Value, err)
			}
			cases[i] = MatchCase{Value: c.Value, Body: b}
		}
		var def *Operand
		if len(r.Default) > 0 {
			d, err := one(r.Default)
			if err != nil {
				return nil, err
			}
			def = &d
		}
		return &MatchExpr{Scrutinee: scrut, Cases: cases, Default: def}, nil

	case "lambda":
		params, err := decodeParams(r.Params)
		if err != nil {
			return nil, err
		}
		var bodyID string
		if err := json.Unmarshal(r.Body, &bodyID); err != nil {
			return nil, fmt.Errorf("lambda body must be a node-id string: %w", err)
		}
		return &LambdaExpr{Params: params, Body: bodyID}, nil

	case "callExpr":
		fn, err := one(r.Fn)
		if err != nil {
			return nil, err
		}
		args, err := many(r.Args)
		if err != nil {
			return nil, err
		}
		return &CallExprApply{Fn: fn, Args: args}, nil

	case "fix":
		fn, err := one(r.Fn)
		if err != nil {
			return nil, err
		}
		return &FixExpr{Fn: fn}, nil

	case "seq":
		first, err := one(r.First)
		if err != nil {
			return nil, err
		}
		then, err := one(r.Then)
		if err != nil {
			return nil, err
		}
		return &SeqExpr{First: first, Then: then}, nil

	case "assign":
		val, err := one(r.Value0())
		if err != nil {
			return nil, err
		}
		return &AssignExpr{Target: r.Target, Value: val}, nil

	case "while":
		cond, err := one(r.Cond)
		if err != nil {
			return nil, err
		}
		body, err := one(r.Body)
		if err != nil {
			return nil, err
		}
		return &WhileExpr{Cond: cond, Body: body}, nil

	case "for":
		init, err := one(r.Init)
		if err != nil {
			return nil, err
		}
		cond, err := one(r.Cond)
		if err != nil {
			return nil, err
		}
		update, err := one(r.Update)
		if err != nil {
			return nil, err
		}
		body, err := one(r.Body)
		if err != nil {
			return nil, err
		}
		return &ForExpr{Var: r.Var, Init: init, Cond: cond, Update: update, Body: body}, nil

	case "iter":
		iterable, err := one(r.Iterable)
		if err != nil {
			return nil, err
		}
		body, err := one(r.Body)
		if err != nil {
			return nil, err
		}
		return &IterExpr{Var: r.Var, Iterable: iterable, Body: body}, nil

	case "effect":
		args, err := many(r.Args)
		if err != nil {
			return nil, err
		}
		return &EffectExpr{Name: r.Name, Args: args}, nil

	case "refCell":
		return &RefCellExpr{Target: r.Target}, nil

	case "deref":
		return &DerefExpr{Target: r.Target}, nil

	case "try":
		tryBody, err := one(r.TryBody)
		if err != nil {
			return nil, err
		}
		catchBody, err := one(r.CatchBody)
		if err != nil {
			return nil, err
		}
		var fallback *Operand
		if len(r.Fallback) > 0 {
			f, err := one(r.Fallback)
			if err != nil {
				return nil, err
			}
			fallback = &f
		}
		return &TryExpr{TryBody: tryBody, CatchParam: r.CatchParam, CatchBody: catchBody, Fallback: fallback}, nil

	case "par":
		branches, err := many(r.Branches)
		if err != nil {
			return nil, err
		}
		return &ParExpr{Branches: branches}, nil

	case "spawn":
		body, err := one(r.Body)
		if err != nil {
			return nil, err
		}
		return &SpawnExpr{Body: body}, nil

	case "await":
		future, err := one(r.Future)
		if err != nil {
			return nil, err
		}
		return &AwaitExpr{Future: future}, nil

	case "channel":
		return &ChannelExpr{ChannelKind: r.ChannelKind}, nil

	case "send":
		ch, err := one(r.Channel)
		if err != nil {
			return nil, err
		}
		val, err := one(r.Value0())
		if err != nil {
			return nil, err
		}
		return &SendExpr{Channel: ch, Value: val}, nil

	case "recv":
		ch, err := one(r.Channel)
		if err != nil {
			return nil, err
		}
		return &RecvExpr{Channel: ch}, nil

	case "close":
		ch, err := one(r.Channel)
		if err != nil {
			return nil, err
		}
		return &CloseExpr{Channel: ch}, nil

	case "select":
		futures, err := many(r.Futures)
		if err != nil {
			return nil, err
		}
		var timeout *Operand
		if len(r.Timeout) > 0 {
			t, err := one(r.Timeout)
			if err != nil {
				return nil, err
			}
			timeout = &t
		}
		return &SelectExpr{Futures: futures, Timeout: timeout}, nil

	case "race":
		tasks, err := many(r.Tasks)
		if err != nil {
			return nil, err
		}
		return &RaceExpr{Tasks: tasks}, nil

	default:
		return nil, fmt.Errorf("unknown expression kind %q", r.Kind)
	}
}

// Value0 disambiguates the shared "value" JSON key used by both let and
// assign and send, which rawExpr otherwise can't distinguish from the lit
// literal payload field of the same name since both are json.RawMessage.
// let/assign/send carry their operand under "value" exactly like lit does;
// the field is reused here rather than duplicated.
func (r *rawExpr) Value0() json.RawMessage { return r.Value }
