// Package shaders embeds the GLSL programs and serves them, or a directory
// override, through compute.SourceReader.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"terrainstream/internal/compute"
)

//go:embed *.comp
var embedded embed.FS

// Reader reads shader sources from an fs.FS.
type Reader struct {
	fsys fs.FS
}

// Embedded serves the sources compiled into the binary.
func Embedded() *Reader { return &Reader{fsys: embedded} }

// Dir serves sources from a directory, for editing shaders without a rebuild.
func Dir(path string) *Reader { return &Reader{fsys: os.DirFS(path)} }

func New(fsys fs.FS) *Reader { return &Reader{fsys: fsys} }

func (r *Reader) ReadShaderSource(path string) ([]byte, error) {
	data, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, compute.ErrSourceNotFound)
		}
		return nil, fmt.Errorf("read shader %s: %w", path, err)
	}
	return data, nil
}
