//go:build !gl

package main

import (
	"io"
	"log"
	"testing"

	"terrainstream/internal/config"
)

func TestGLBackendNeedsBuildTag(t *testing.T) {
	cfg := config.Default()
	cfg.Compute.Backend = "gl"
	if _, err := newBackend(cfg, log.New(io.Discard, "", 0)); err == nil {
		t.Fatalf("expected gl backend error without the gl build tag")
	}
}
