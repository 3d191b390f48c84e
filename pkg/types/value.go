// Package types defines the SPIRAL runtime value domain: the tagged union
// of values produced and consumed by every evaluator tier (AIR through PIR).
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// Kind identifies a Value's variant.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindSet
	KindMap
	KindOption
	KindOpaque
	KindClosure
	KindRefCell
	KindError
	KindFuture
	KindChannel
	KindTask
	KindSelectResult
)

// String returns the SPIRAL type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	case KindOption:
		return "option"
	case KindOpaque:
		return "opaque"
	case KindClosure:
		return "closure"
	case KindRefCell:
		return "refcell"
	case KindError:
		return "error"
	case KindFuture:
		return "future"
	case KindChannel:
		return "channel"
	case KindTask:
		return "task"
	case KindSelectResult:
		return "selectresult"
	default:
		return "unknown"
	}
}

// Value is a tagged union over every SPIRAL runtime variant. It is passed
// by value; collection and identity-bearing variants hold a pointer to
// their actual storage so that sharing and mutation-through-aliasing
// (ref-cells, futures, channels) behave as the spec requires.
type Value struct {
	kind      Kind
	boolVal   bool
	intVal    int64
	floatVal  float64
	stringVal string
	list      *listBox
	set       *setBox
	mapVal    *OrderedMap
	option    *Value // nil means "none"
	opaque    *OpaqueVal
	closure   *Closure
	refCell   *RefCell
	err       *EvalError
	future    *Future
	channel   *ChannelRef
	task      *TaskRef
	selRes    *SelectResultVal
}

// listBox is the identity-bearing backing store for a list Value.
type listBox struct {
	items []Value
}

// OrderedMap maintains insertion order for map keys, matching SPIRAL map
// iteration semantics (invariant 3 of spec.md's Value domain).
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

// NewOrderedMap creates a new empty ordered map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// Get retrieves a value by key.
func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set adds or updates a key-value pair, preserving first-insertion order.
func (m *OrderedMap) Set(key string, val Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

// Delete removes a key from the map.
func (m *OrderedMap) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *OrderedMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// Clone creates a deep copy of the ordered map.
func (m *OrderedMap) Clone() *OrderedMap {
	c := NewOrderedMap()
	for _, k := range m.keys {
		c.Set(k, m.values[k].Clone())
	}
	return c
}

// setBox is the identity-bearing, hash-keyed backing store for a set Value.
type setBox struct {
	keys   []string // hash keys, insertion order
	byHash map[string]Value
}

func newSetBox() *setBox {
	return &setBox{byHash: make(map[string]Value)}
}

func (s *setBox) add(v Value) {
	h := v.Hash()
	if _, exists := s.byHash[h]; !exists {
		s.keys = append(s.keys, h)
	}
	s.byHash[h] = v
}

// OpaqueVal is a named tag plus an uninterpreted host payload.
type OpaqueVal struct {
	Tag     string
	Payload interface{}
}

// ClosureParam describes one formal parameter of a Closure.
type ClosureParam struct {
	Name     string
	Optional bool
	// Default is the parameter's default-value operand, opaque to this
	// package (a *document.Operand as seen by pkg/evaluator); nil if none.
	Default interface{}
	// Type is the parameter's declared type descriptor, opaque to this
	// package (a *document.Type); nil if unannotated.
	Type interface{}
}

// Closure is a first-class function value: parameters, an (opaque) body
// node id, and a captured (opaque) environment. The evaluator package
// owns the concrete Body/Env types; types.Value stays independent of them
// so the value domain has no dependency on the document or environment
// packages (avoids an import cycle and keeps this package leaf-level).
type Closure struct {
	Params []ClosureParam
	Body   interface{} // string node id of the body expression
	Env    interface{} // *environ.Env
}

// RefCell is a single mutable cell. Identity is the pointer itself;
// dereferencing the same cell always observes the latest Set.
type RefCell struct {
	ID  string
	val Value
}

// NewRefCell creates a ref-cell initialized to v.
func NewRefCell(id string, v Value) *RefCell {
	return &RefCell{ID: id, val: v}
}

// Get reads the cell's current content.
func (c *RefCell) Get() Value { return c.val }

// Set overwrites the cell's content.
func (c *RefCell) Set(v Value) { c.val = v }

// FutureStatus is the resolution state of a Future.
type FutureStatus int

const (
	FuturePending FutureStatus = iota
	FutureReady
	FutureError
)

// Future is a handle to an asynchronously computed Value. It transitions
// monotonically pending -> (ready|error) and never changes afterward
// (invariant 4 of spec.md's Value domain). The scheduler owns the
// synchronization; this struct is the value-domain view of that state.
type Future struct {
	TaskID string

	mu     sync.Mutex
	status FutureStatus
	value  Value
	err    *EvalError
}

// NewFuture creates a pending future for the given task id.
func NewFuture(taskID string) *Future {
	return &Future{TaskID: taskID, status: FuturePending}
}

// Status returns the future's current status.
func (f *Future) Status() FutureStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// Resolve transitions the future to ready with value v. No-op if already
// resolved (monotonicity).
func (f *Future) Resolve(v Value) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != FuturePending {
		return
	}
	f.status = FutureReady
	f.value = v
}

// Fail transitions the future to error with err. No-op if already resolved.
func (f *Future) Fail(err *EvalError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != FuturePending {
		return
	}
	f.status = FutureError
	f.err = err
}

// Value returns the resolved value (valid only when Status() == FutureReady).
func (f *Future) Value() Value {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Err returns the resolution error (valid only when Status() == FutureError).
func (f *Future) Err() *EvalError {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// ChannelRef is the value-domain handle to a channel; the channel's actual
// buffer and synchronization live in the async package's channel store,
// addressed by ID.
type ChannelRef struct {
	ID   string
	Kind string // mpsc | spsc | mpmc | broadcast
}

// TaskRef is the value-domain handle to a scheduled task.
type TaskRef struct {
	ID         string
	ReturnType interface{} // *document.Type, opaque here
}

// SelectResultVal is the result of a select/race expression.
type SelectResultVal struct {
	Index int // -1 denotes timeout
	Value Value
}

// Null / Void is the singleton unit value.
var Void = Value{kind: KindVoid}

func NewBool(v bool) Value     { return Value{kind: KindBool, boolVal: v} }
func NewInt(v int64) Value     { return Value{kind: KindInt, intVal: v} }
func NewFloat(v float64) Value { return Value{kind: KindFloat, floatVal: v} }
func NewString(v string) Value { return Value{kind: KindString, stringVal: v} }

// NewList creates a list value. The slice is owned by the returned Value.
func NewList(items []Value) Value {
	return Value{kind: KindList, list: &listBox{items: items}}
}

// NewSet creates a set value from elements, coalescing duplicates by hash.
func NewSet(items []Value) Value {
	b := newSetBox()
	for _, it := range items {
		b.add(it)
	}
	return Value{kind: KindSet, set: b}
}

// NewMap creates a map value from an OrderedMap.
func NewMap(m *OrderedMap) Value {
	if m == nil {
		m = NewOrderedMap()
	}
	return Value{kind: KindMap, mapVal: m}
}

// NewOption creates a "some" option wrapping v.
func NewOption(v Value) Value {
	cp := v
	return Value{kind: KindOption, option: &cp}
}

// NoneOption is the canonical "none" option value.
var NoneOption = Value{kind: KindOption, option: nil}

func NewOpaque(tag string, payload interface{}) Value {
	return Value{kind: KindOpaque, opaque: &OpaqueVal{Tag: tag, Payload: payload}}
}

func NewClosure(c *Closure) Value { return Value{kind: KindClosure, closure: c} }

func NewRefCellValue(c *RefCell) Value { return Value{kind: KindRefCell, refCell: c} }

func NewErrorValue(e *EvalError) Value { return Value{kind: KindError, err: e} }

func NewFutureValue(f *Future) Value { return Value{kind: KindFuture, future: f} }

func NewChannelValue(id, kind string) Value {
	return Value{kind: KindChannel, channel: &ChannelRef{ID: id, Kind: kind}}
}

func NewTaskValue(id string, retType interface{}) Value {
	return Value{kind: KindTask, task: &TaskRef{ID: id, ReturnType: retType}}
}

func NewSelectResult(index int, v Value) Value {
	return Value{kind: KindSelectResult, selRes: &SelectResultVal{Index: index, Value: v}}
}

// Type returns the value's kind.
func (v Value) Type() Kind { return v.kind }

// IsVoid reports whether v is the unit value.
func (v Value) IsVoid() bool { return v.kind == KindVoid }

// IsError reports whether v carries an Error.
func (v Value) IsError() bool { return v.kind == KindError }

func (v Value) AsBool() bool {
	if v.kind != KindBool {
		panic(fmt.Sprintf("AsBool called on %s value", v.kind))
	}
	return v.boolVal
}

func (v Value) AsInt() int64 {
	if v.kind != KindInt {
		panic(fmt.Sprintf("AsInt called on %s value", v.kind))
	}
	return v.intVal
}

func (v Value) AsFloat() float64 {
	if v.kind != KindFloat {
		panic(fmt.Sprintf("AsFloat called on %s value", v.kind))
	}
	return v.floatVal
}

func (v Value) AsString() string {
	if v.kind != KindString {
		panic(fmt.Sprintf("AsString called on %s value", v.kind))
	}
	return v.stringVal
}

func (v Value) AsList() []Value {
	if v.kind != KindList {
		panic(fmt.Sprintf("AsList called on %s value", v.kind))
	}
	return v.list.items
}

func (v Value) AsSet() []Value {
	if v.kind != KindSet {
		panic(fmt.Sprintf("AsSet called on %s value", v.kind))
	}
	out := make([]Value, 0, len(v.set.keys))
	for _, h := range v.set.keys {
		out = append(out, v.set.byHash[h])
	}
	return out
}

// SetContainsHash reports whether the set contains an element with the
// given hash string, per spec.md's "membership by hashed key" rule.
func (v Value) SetContainsHash(hash string) bool {
	if v.kind != KindSet {
		panic(fmt.Sprintf("SetContainsHash called on %s value", v.kind))
	}
	_, ok := v.set.byHash[hash]
	return ok
}

func (v Value) AsMap() *OrderedMap {
	if v.kind != KindMap {
		panic(fmt.Sprintf("AsMap called on %s value", v.kind))
	}
	return v.mapVal
}

// AsOption returns the wrapped value and whether it is "some".
func (v Value) AsOption() (Value, bool) {
	if v.kind != KindOption {
		panic(fmt.Sprintf("AsOption called on %s value", v.kind))
	}
	if v.option == nil {
		return Void, false
	}
	return *v.option, true
}

func (v Value) AsOpaque() *OpaqueVal {
	if v.kind != KindOpaque {
		panic(fmt.Sprintf("AsOpaque called on %s value", v.kind))
	}
	return v.opaque
}

func (v Value) AsClosure() *Closure {
	if v.kind != KindClosure {
		panic(fmt.Sprintf("AsClosure called on %s value", v.kind))
	}
	return v.closure
}

func (v Value) AsRefCell() *RefCell {
	if v.kind != KindRefCell {
		panic(fmt.Sprintf("AsRefCell called on %s value", v.kind))
	}
	return v.refCell
}

func (v Value) AsError() *EvalError {
	if v.kind != KindError {
		panic(fmt.Sprintf("AsError called on %s value", v.kind))
	}
	return v.err
}

func (v Value) AsFuture() *Future {
	if v.kind != KindFuture {
		panic(fmt.Sprintf("AsFuture called on %s value", v.kind))
	}
	return v.future
}

func (v Value) AsChannel() *ChannelRef {
	if v.kind != KindChannel {
		panic(fmt.Sprintf("AsChannel called on %s value", v.kind))
	}
	return v.channel
}

func (v Value) AsTask() *TaskRef {
	if v.kind != KindTask {
		panic(fmt.Sprintf("AsTask called on %s value", v.kind))
	}
	return v.task
}

func (v Value) AsSelectResult() *SelectResultVal {
	if v.kind != KindSelectResult {
		panic(fmt.Sprintf("AsSelectResult called on %s value", v.kind))
	}
	return v.selRes
}

// AsNumber returns the numeric value as float64 for int or float kinds.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	default:
		return 0, false
	}
}

// Truthy returns the truthiness of a value. Only false and void are falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindVoid:
		return false
	case KindBool:
		return v.boolVal
	default:
		return true
	}
}

// Clone creates a deep copy for collection kinds; scalars and
// identity-bearing kinds (closure, refcell, future, channel, task) are
// returned as-is since they are defined by reference identity.
func (v Value) Clone() Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list.items))
		for i, it := range v.list.items {
			items[i] = it.Clone()
		}
		return NewList(items)
	case KindMap:
		return NewMap(v.mapVal.Clone())
	case KindSet:
		return NewSet(v.AsSet())
	case KindOption:
		if v.option == nil {
			return v
		}
		cp := v.option.Clone()
		return NewOption(cp)
	default:
		return v
	}
}

// Hash returns the hash key used for set membership and map-like identity
// comparisons, per spec.md's Value-hashing rules.
func (v Value) Hash() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("b:%v", v.boolVal)
	case KindInt:
		return fmt.Sprintf("i:%d", v.intVal)
	case KindFloat:
		return fmt.Sprintf("f:%v", v.floatVal)
	case KindString:
		return "s:" + v.stringVal
	case KindOption:
		if v.option == nil {
			return "o:none"
		}
		return "o:some:" + v.option.Hash()
	case KindVoid:
		return "v:void"
	case KindList:
		return fmt.Sprintf("l:%p", v.list)
	case KindSet:
		return fmt.Sprintf("t:%p", v.set)
	case KindMap:
		return fmt.Sprintf("m:%p", v.mapVal)
	case KindOpaque:
		return fmt.Sprintf("q:%p", v.opaque)
	case KindClosure:
		return fmt.Sprintf("c:%p", v.closure)
	case KindRefCell:
		return fmt.Sprintf("r:%p", v.refCell)
	case KindError:
		return fmt.Sprintf("e:%p", v.err)
	case KindFuture:
		return fmt.Sprintf("u:%p", v.future)
	case KindChannel:
		return "h:" + v.channel.ID
	case KindTask:
		return "k:" + v.task.ID
	case KindSelectResult:
		return fmt.Sprintf("x:%p", v.selRes)
	default:
		return "?:unknown"
	}
}

// Equal tests equality between two values. Numbers compare across int/float;
// collections compare structurally; identity-bearing kinds compare by
// pointer identity via Hash.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		if (v.kind == KindInt || v.kind == KindFloat) && (other.kind == KindInt || other.kind == KindFloat) {
			a, _ := v.AsNumber()
			b, _ := other.AsNumber()
			return a == b
		}
		return false
	}
	switch v.kind {
	case KindVoid:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInt:
		return v.intVal == other.intVal
	case KindFloat:
		return v.floatVal == other.floatVal
	case KindString:
		return v.stringVal == other.stringVal
	case KindList:
		a, b := v.list.items, other.list.items
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindSet:
		if len(v.set.keys) != len(other.set.keys) {
			return false
		}
		for h := range v.set.byHash {
			if _, ok := other.set.byHash[h]; !ok {
				return false
			}
		}
		return true
	case KindMap:
		if v.mapVal.Len() != other.mapVal.Len() {
			return false
		}
		for _, k := range v.mapVal.Keys() {
			ov, ok := other.mapVal.Get(k)
			if !ok {
				return false
			}
			mv, _ := v.mapVal.Get(k)
			if !mv.Equal(ov) {
				return false
			}
		}
		return true
	case KindOption:
		aSome := v.option != nil
		bSome := other.option != nil
		if aSome != bSome {
			return false
		}
		if !aSome {
			return true
		}
		return v.option.Equal(*other.option)
	default:
		return v.Hash() == other.Hash()
	}
}

// String returns a human-readable representation of the value for
// diagnostics, string interpolation, and effect-history rendering.
func (v Value) String() string {
	switch v.kind {
	case KindVoid:
		return "void"
	case KindBool:
		if v.boolVal {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindFloat:
		if v.floatVal == math.Trunc(v.floatVal) && !math.IsInf(v.floatVal, 0) {
			return fmt.Sprintf("%.1f", v.floatVal)
		}
		return fmt.Sprintf("%g", v.floatVal)
	case KindString:
		return v.stringVal
	case KindList:
		parts := make([]string, len(v.list.items))
		for i, it := range v.list.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindSet:
		parts := make([]string, 0, len(v.set.keys))
		for _, h := range v.set.keys {
			parts = append(parts, v.set.byHash[h].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindMap:
		parts := make([]string, 0, v.mapVal.Len())
		for _, k := range v.mapVal.Keys() {
			val, _ := v.mapVal.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", k, val.String()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindOption:
		if v.option == nil {
			return "none"
		}
		return "some(" + v.option.String() + ")"
	case KindOpaque:
		return fmt.Sprintf("<opaque %s>", v.opaque.Tag)
	case KindClosure:
		return "<closure>"
	case KindRefCell:
		return fmt.Sprintf("<ref %s>", v.refCell.ID)
	case KindError:
		return fmt.Sprintf("<error %s: %s>", v.err.Code, v.err.Message)
	case KindFuture:
		return fmt.Sprintf("<future %s>", v.future.TaskID)
	case KindChannel:
		return fmt.Sprintf("<channel %s:%s>", v.channel.Kind, v.channel.ID)
	case KindTask:
		return fmt.Sprintf("<task %s>", v.task.ID)
	case KindSelectResult:
		return fmt.Sprintf("<select idx=%d %s>", v.selRes.Index, v.selRes.Value.String())
	default:
		return "<unknown>"
	}
}

// MarshalJSON converts a Value to JSON for document results / effect logs.
// Identity-bearing kinds (closure, refcell, future, channel, task) have no
// meaningful JSON form and marshal to a tagged placeholder object.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindVoid:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolVal)
	case KindInt:
		return json.Marshal(v.intVal)
	case KindFloat:
		return json.Marshal(v.floatVal)
	case KindString:
		return json.Marshal(v.stringVal)
	case KindList:
		raws := make([]json.RawMessage, len(v.list.items))
		for i, it := range v.list.items {
			b, err := it.MarshalJSON()
			if err != nil {
				return nil, err
			}
			raws[i] = b
		}
		return json.Marshal(raws)
	case KindSet:
		raws := make([]json.RawMessage, 0, len(v.set.keys))
		for _, h := range v.set.keys {
			b, err := v.set.byHash[h].MarshalJSON()
			if err != nil {
				return nil, err
			}
			raws = append(raws, b)
		}
		return json.Marshal(raws)
	case KindMap:
		buf := []byte{'{'}
		for i, k := range v.mapVal.Keys() {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			val, _ := v.mapVal.Get(k)
			vb, err := val.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case KindOption:
		if v.option == nil {
			return []byte("null"), nil
		}
		return v.option.MarshalJSON()
	case KindError:
		return NewMap(v.err.WireMap()).MarshalJSON()
	default:
		return json.Marshal(map[string]interface{}{"kind": v.kind.String()})
	}
}

// ValueFromJSON converts a decoded Go interface{} (from json.Unmarshal) into
// a Value, used for literal payloads and the driver's JSON result surface.
func ValueFromJSON(v interface{}) Value {
	if v == nil {
		return Void
	}
	switch val := v.(type) {
	case bool:
		return NewBool(val)
	case float64:
		if val == math.Trunc(val) && !math.IsInf(val, 0) && val >= math.MinInt64 && val <= math.MaxInt64 {
			return NewInt(int64(val))
		}
		return NewFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return NewInt(i)
		}
		if f, err := val.Float64(); err == nil {
			return NewFloat(f)
		}
		return NewString(val.String())
	case string:
		return NewString(val)
	case []interface{}:
		items := make([]Value, len(val))
		for i, it := range val {
			items[i] = ValueFromJSON(it)
		}
		return NewList(items)
	case map[string]interface{}:
		m := NewOrderedMap()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, ValueFromJSON(val[k]))
		}
		return NewMap(m)
	default:
		return NewString(fmt.Sprintf("%v", val))
	}
}

// ToGoValue converts a Value to a plain Go interface{} for JSON marshaling
// via the standard library, or for host interop.
func (v Value) ToGoValue() interface{} {
	switch v.kind {
	case KindVoid:
		return nil
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal
	case KindFloat:
		return v.floatVal
	case KindString:
		return v.stringVal
	case KindList:
		out := make([]interface{}, len(v.list.items))
		for i, it := range v.list.items {
			out[i] = it.ToGoValue()
		}
		return out
	case KindSet:
		out := make([]interface{}, 0, len(v.set.keys))
		for _, h := range v.set.keys {
			out = append(out, v.set.byHash[h].ToGoValue())
		}
		return out
	case KindMap:
		out := make(map[string]interface{}, v.mapVal.Len())
		for _, k := range v.mapVal.Keys() {
			val, _ := v.mapVal.Get(k)
			out[k] = val.ToGoValue()
		}
		return out
	case KindOption:
		if v.option == nil {
			return nil
		}
		return v.option.ToGoValue()
	case KindError:
		return NewMap(v.err.WireMap()).ToGoValue()
	default:
		return v.String()
	}
}
