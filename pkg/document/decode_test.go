package document

import (
	"encoding/json"
	"testing"
)

func TestDecodeLit(t *testing.T) {
	raw := []byte(`{"kind":"lit","type":{"kind":"int"},"value":42}`)
	e, err := decodeExpr(raw)
	if err != nil {
		t.Fatalf("decodeExpr: %v", err)
	}
	lit, ok := e.(*LitExpr)
	if !ok {
		t.Fatalf("expected *LitExpr, got %T", e)
	}
	if lit.Type == nil || lit.Type.Kind != "int" {
		t.Fatalf("expected int type, got %+v", lit.Type)
	}
	n, ok := lit.Value.(float64)
	if !ok || n != 42 {
		t.Fatalf("expected value 42, got %v", lit.Value)
	}
}

func TestDecodeIfAndCall(t *testing.T) {
	raw := []byte(`{
		"kind": "if",
		"cond": {"kind":"call","ns":"core","name":"eq","args":["a","b"]},
		"then": "n1",
		"else": "n2"
	}`)
	e, err := decodeExpr(raw)
	if err != nil {
		t.Fatalf("decodeExpr: %v", err)
	}
	ifExpr, ok := e.(*IfExpr)
	if !ok {
		t.Fatalf("expected *IfExpr, got %T", e)
	}
	call, ok := ifExpr.Cond.Inline.(*CallExpr)
	if !ok {
		t.Fatalf("expected inline *CallExpr, got %+v", ifExpr.Cond)
	}
	if call.NS != "core" || call.Name != "eq" || len(call.Args) != 2 {
		t.Fatalf("unexpected call: %+v", call)
	}
	if ifExpr.Then.NodeID != "n1" || ifExpr.Else.NodeID != "n2" {
		t.Fatalf("unexpected branch node ids: %+v / %+v", ifExpr.Then, ifExpr.Else)
	}
}

func TestDecodeLambdaBodyMustBeNodeID(t *testing.T) {
	raw := []byte(`{"kind":"lambda","params":[{"name":"x"}],"body":"body1"}`)
	e, err := decodeExpr(raw)
	if err != nil {
		t.Fatalf("decodeExpr: %v", err)
	}
	lam, ok := e.(*LambdaExpr)
	if !ok {
		t.Fatalf("expected *LambdaExpr, got %T", e)
	}
	if lam.Body != "body1" {
		t.Fatalf("expected body node id %q, got %q", "body1", lam.Body)
	}
	if len(lam.Params) != 1 || lam.Params[0].Name != "x" || lam.Params[0].Default != nil {
		t.Fatalf("unexpected params: %+v", lam.Params)
	}
}

func TestDecodeLetReusesValueKeyWithoutAmbiguity(t *testing.T) {
	raw := []byte(`{"kind":"let","name":"x","value":"n1","body":"n2"}`)
	e, err := decodeExpr(raw)
	if err != nil {
		t.Fatalf("decodeExpr: %v", err)
	}
	let, ok := e.(*LetExpr)
	if !ok {
		t.Fatalf("expected *LetExpr, got %T", e)
	}
	if let.Name != "x" || let.Value.NodeID != "n1" || let.Body.NodeID != "n2" {
		t.Fatalf("unexpected let: %+v", let)
	}
}

func TestDecodeParamDefault(t *testing.T) {
	raw := []byte(`{"kind":"lambda","params":[{"name":"x","optional":true,"default":"d1"}],"body":"b1"}`)
	e, err := decodeExpr(raw)
	if err != nil {
		t.Fatalf("decodeExpr: %v", err)
	}
	lam := e.(*LambdaExpr)
	if !lam.Params[0].Optional {
		t.Fatalf("expected optional param")
	}
	if lam.Params[0].Default == nil || lam.Params[0].Default.NodeID != "d1" {
		t.Fatalf("expected default node id d1, got %+v", lam.Params[0].Default)
	}
}

func TestElementTypeEquivalentKeys(t *testing.T) {
	for _, raw := range []string{
		`{"kind":"list","of":{"kind":"int"}}`,
		`{"kind":"list","elem":{"kind":"int"}}`,
		`{"kind":"list","elementType":{"kind":"int"}}`,
	} {
		var rt rawType
		if err := json.Unmarshal([]byte(raw), &rt); err != nil {
			t.Fatalf("unmarshal rawType: %v", err)
		}
		typ := decodeType(&rt)
		if typ.ElementType() == nil || typ.ElementType().Kind != "int" {
			t.Fatalf("expected element type int for %s, got %+v", raw, typ.ElementType())
		}
	}
}
