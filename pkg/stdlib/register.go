package stdlib

import "github.com/spiral-lang/spiral/pkg/registry"

// Register installs every built-in operator namespace (core, list, set,
// map, option, text, hash, uuid, base64, json) into reg. Effect handlers
// are registered separately via RegisterEffects, since they need a
// destination writer the pure operator set has no use for.
func Register(reg *registry.Registry) {
	registerCore(reg)
	registerList(reg)
	registerMap(reg)
	registerText(reg)
	registerMisc(reg)
}
