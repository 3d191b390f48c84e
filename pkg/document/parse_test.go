package document

import "testing"

func TestDecodeDocumentExpressionForm(t *testing.T) {
	raw := []byte(`{
		"version": "1",
		"nodes": [
			{"id":"n1","kind":"lit","type":{"kind":"int"},"value":1},
			{"id":"n2","kind":"lit","type":{"kind":"int"},"value":2},
			{"id":"n3","kind":"call","ns":"core","name":"add","args":["n1","n2"]}
		],
		"result": "n3"
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}
	n3 := doc.ByID("n3")
	if n3 == nil {
		t.Fatalf("missing node n3")
	}
	if n3.IsBlock() {
		t.Fatalf("n3 should be an expression node")
	}
	call, ok := n3.Expr.(*CallExpr)
	if !ok {
		t.Fatalf("expected *CallExpr, got %T", n3.Expr)
	}
	if call.NS != "core" || call.Name != "add" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if doc.Result != "n3" {
		t.Fatalf("unexpected result node: %q", doc.Result)
	}
}

func TestDecodeDocumentBlockForm(t *testing.T) {
	raw := []byte(`{
		"version": "1",
		"nodes": [
			{
				"id": "b1",
				"entry": "entry",
				"blocks": [
					{
						"id": "entry",
						"instructions": [
							{"op":"op","target":"t1","ns":"core","name":"add","args":["1","2"]}
						],
						"terminator": {"op":"return","value":"t1"}
					}
				]
			}
		],
		"result": "b1"
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	n := doc.ByID("b1")
	if n == nil || !n.IsBlock() {
		t.Fatalf("expected block node b1, got %+v", n)
	}
	if n.Block.Entry != "entry" {
		t.Fatalf("unexpected entry: %q", n.Block.Entry)
	}
	entry := n.Block.ByID("entry")
	if entry == nil || len(entry.Instructions) != 1 {
		t.Fatalf("unexpected entry block: %+v", entry)
	}
	op, ok := entry.Instructions[0].(*OpInstr)
	if !ok {
		t.Fatalf("expected *OpInstr, got %T", entry.Instructions[0])
	}
	if op.Target != "t1" || op.NS != "core" || op.Name != "add" {
		t.Fatalf("unexpected op instr: %+v", op)
	}
	ret, ok := entry.Terminator.(*ReturnTerm)
	if !ok {
		t.Fatalf("expected *ReturnTerm, got %T", entry.Terminator)
	}
	if !ret.HasValue || ret.Value != "t1" {
		t.Fatalf("unexpected return terminator: %+v", ret)
	}
}

func TestDecodeDocumentWithDefsAndImports(t *testing.T) {
	raw := []byte(`{
		"version": "1",
		"$defs": {
			"shared:one": {"id":"shared1","kind":"lit","type":{"kind":"int"},"value":1}
		},
		"$imports": {
			"one": {"$ref": "#/$defs/shared:one"}
		},
		"nodes": [
			{"$ref": "#/$defs/one"}
		],
		"result": "shared1"
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(doc.Nodes))
	}
	if doc.Nodes[0].ID != "shared1" {
		t.Fatalf("expected resolved node id shared1, got %q", doc.Nodes[0].ID)
	}
}

func TestDecodeReferenceNodeKeepsOwnID(t *testing.T) {
	raw := []byte(`{
		"version": "1",
		"$defs": {
			"ten": {"kind":"lit","type":{"kind":"int"},"value":10}
		},
		"nodes": [
			{"id":"a","$ref":"#/$defs/ten"},
			{"id":"b","$ref":"#/$defs/ten"}
		],
		"result": "b"
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Nodes[0].ID != "a" || doc.Nodes[1].ID != "b" {
		t.Fatalf("reference nodes lost their ids: %q, %q", doc.Nodes[0].ID, doc.Nodes[1].ID)
	}
	if _, ok := doc.Nodes[1].Expr.(*LitExpr); !ok {
		t.Fatalf("expected resolved lit expression, got %T", doc.Nodes[1].Expr)
	}
}

func TestDecodeAirDefs(t *testing.T) {
	raw := []byte(`{
		"version": "1",
		"nodes": [{"id":"n1","kind":"lit","type":{"kind":"int"},"value":1}],
		"result": "n1",
		"airDefs": [
			{"ns":"math","name":"square","params":[{"name":"x"}],"body":"n1"}
		]
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.AirDefs) != 1 {
		t.Fatalf("expected 1 airDef, got %d", len(doc.AirDefs))
	}
	def := doc.AirDefs[0]
	if def.NS != "math" || def.Name != "square" || def.Body != "n1" {
		t.Fatalf("unexpected airDef: %+v", def)
	}
}
