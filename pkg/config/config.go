// Package config loads the CLI's own settings file. The document format
// the evaluator consumes stays strict JSON (spec.md §6); YAML here is
// purely for the `spiral` binary's local defaults, the way the teacher
// reserves YAML for workflow source and JSON for wire payloads.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the decoded shape of .spiralrc.yaml.
type Config struct {
	MaxSteps   int    `yaml:"maxSteps"`
	Trace      bool   `yaml:"trace"`
	StdlibDir  string `yaml:"stdlibDir"`
	Listen     string `yaml:"listen"`
	GRPCListen string `yaml:"grpcListen"`
}

// Default returns the built-in fallback config, used when no file is
// found and no environment overrides apply.
func Default() Config {
	return Config{
		MaxSteps:   10000,
		Trace:      false,
		Listen:     "0.0.0.0:8787",
		GRPCListen: "0.0.0.0:8788",
	}
}

// Load reads path, merging its fields onto Default(). A missing file is
// not an error — it just means the defaults (and any flag/env overrides
// applied afterward by the caller) stand alone.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
