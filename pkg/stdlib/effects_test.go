package stdlib

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spiral-lang/spiral/pkg/registry"
	"github.com/spiral-lang/spiral/pkg/types"
)

func TestRegisterEffectsPrintWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.NewEffectRegistry()
	RegisterEffects(reg, &buf)

	if _, err := reg.Invoke("print", []types.Value{types.NewString("hello"), types.NewInt(1)}); err != nil {
		t.Fatalf("print effect: %v", err)
	}
	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "1") {
		t.Fatalf("expected print output to contain args, got %q", buf.String())
	}
}

func TestRegisterEffectsLogIsRecordedInHistory(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.NewEffectRegistry()
	RegisterEffects(reg, &buf)

	if _, err := reg.Invoke("log", []types.Value{types.NewString("entry")}); err != nil {
		t.Fatalf("log effect: %v", err)
	}
	history := reg.History()
	if len(history) != 1 || history[0].Name != "log" {
		t.Fatalf("expected log effect recorded in history, got %+v", history)
	}
}
