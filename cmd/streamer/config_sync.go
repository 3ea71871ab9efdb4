package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"terrainstream/internal/config"
)

const (
	envConfigJSON = "TERRAIN_CONFIG_JSON"
	envConfigYAML = "TERRAIN_CONFIG_YAML_B64"
)

// configFromEnv overlays an environment payload on the defaults. JSON wins
// when both variables are set. ok is false when neither is.
func configFromEnv() (cfg *config.Config, ok bool, err error) {
	rawJSON, rawYAML := os.Getenv(envConfigJSON), os.Getenv(envConfigYAML)
	if rawJSON == "" && rawYAML == "" {
		return nil, false, nil
	}

	cfg = config.Default()
	switch {
	case rawJSON != "":
		if err := json.Unmarshal([]byte(rawJSON), cfg); err != nil {
			return nil, false, fmt.Errorf("%s: %w", envConfigJSON, err)
		}
	default:
		doc, err := base64.StdEncoding.DecodeString(rawYAML)
		if err != nil {
			return nil, false, fmt.Errorf("%s: not base64: %w", envConfigYAML, err)
		}
		if err := yaml.Unmarshal(doc, cfg); err != nil {
			return nil, false, fmt.Errorf("%s: %w", envConfigYAML, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("environment config: %w", err)
	}
	return cfg, true, nil
}

// writeConfigFromEnv persists an environment payload at cfgPath as indented
// JSON, so the normal config.Load path picks it up. It reports whether a
// file was written.
func writeConfigFromEnv(cfgPath string) (bool, error) {
	cfg, ok, err := configFromEnv()
	if err != nil || !ok {
		return false, err
	}
	if cfgPath == "" {
		return false, errors.New("environment config needs -config to name a destination file")
	}

	if dir := filepath.Dir(cfgPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("config dir %s: %w", dir, err)
		}
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(cfgPath, out, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", cfgPath, err)
	}
	return true, nil
}
