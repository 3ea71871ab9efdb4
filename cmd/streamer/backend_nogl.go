//go:build !gl

package main

import (
	"errors"
	"log"

	"terrainstream/internal/config"
)

func newGLBackend(*config.Config, *log.Logger) (*backend, error) {
	return nil, errors.New("gl backend not compiled in; rebuild with -tags gl")
}
