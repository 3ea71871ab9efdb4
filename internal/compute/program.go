// Package compute models the bind, dispatch, barrier and consume cycle shared
// by every GPU-style generation stage. A Pipeline owns one linked program and
// a backend Kernel; the Fence returned by a dispatch is the only way to reach
// its output, so results can never be read before the barrier.
package compute

import (
	"errors"
	"fmt"
	"log"
)

// ShaderKind selects the uniform layout a program is resolved against.
type ShaderKind int

const (
	KindSurface ShaderKind = iota
	KindPostProc
	KindLightCull
	KindTerrainGen
	KindSkydome
)

func (k ShaderKind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindPostProc:
		return "postproc"
	case KindLightCull:
		return "lightcull"
	case KindTerrainGen:
		return "terraingen"
	case KindSkydome:
		return "skydome"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type StageType int

const (
	StageVertex StageType = iota
	StageFragment
	StageGeometry
	StageCompute
)

func (s StageType) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageGeometry:
		return "geometry"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type Stage struct {
	Type StageType
	Path string
}

// ProgramSpec describes a program before it is built. Captures lists output
// varyings recorded interleaved, in order, alongside the program's results.
type ProgramSpec struct {
	Name     string
	Kind     ShaderKind
	Stages   []Stage
	Captures []string
}

// Capture varyings of the terrain generation program.
const (
	CapturePosition = "outVertPos"
	CaptureNormal   = "theNormal"
)

func TerrainGenProgram() ProgramSpec {
	return ProgramSpec{
		Name:     "terrain_gen",
		Kind:     KindTerrainGen,
		Stages:   []Stage{{Type: StageCompute, Path: "terrain_gen.comp"}},
		Captures: []string{CapturePosition, CaptureNormal},
	}
}

func LightCullProgram() ProgramSpec {
	return ProgramSpec{
		Name:   "light_cull",
		Kind:   KindLightCull,
		Stages: []Stage{{Type: StageCompute, Path: "light_cull.comp"}},
	}
}

func (s ProgramSpec) Validate() error {
	if s.Name == "" {
		return errors.New("program name must be set")
	}
	if len(s.Stages) == 0 {
		return fmt.Errorf("program %s has no stages", s.Name)
	}
	compute := 0
	for i, st := range s.Stages {
		if st.Path == "" {
			return fmt.Errorf("program %s stage[%d] has no source path", s.Name, i)
		}
		if st.Type == StageCompute {
			compute++
		}
	}
	if compute > 0 && compute != len(s.Stages) {
		return fmt.Errorf("program %s mixes compute and graphics stages", s.Name)
	}
	return nil
}

// ProgramHandle is a backend-owned program name. Zero is never a valid handle.
type ProgramHandle uint32

// SourceReader loads shader source text by path.
type SourceReader interface {
	ReadShaderSource(path string) ([]byte, error)
}

// Device compiles and links programs and answers uniform queries. Backends
// that talk to a graphics API must be called from the thread that owns the
// context.
type Device interface {
	CompileAndLink(spec ProgramSpec, sources map[string][]byte) (ProgramHandle, error)
	UniformLocation(p ProgramHandle, name string) Location
	DeleteProgram(p ProgramHandle)
}

// Program is a linked program with its uniform layout resolved.
type Program struct {
	Handle  ProgramHandle
	Spec    ProgramSpec
	Layout  Layout
	Missing []string
}

// Build reads every stage, compiles and links the program and resolves the
// layout for spec.Kind. Uniforms the program does not declare are recorded in
// Missing and logged; they are not an error.
func Build(spec ProgramSpec, dev Device, src SourceReader, logger *log.Logger) (*Program, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := spec.Validate(); err != nil {
		return nil, &BuildError{Program: spec.Name, Err: err}
	}

	sources := make(map[string][]byte, len(spec.Stages))
	for _, st := range spec.Stages {
		data, err := src.ReadShaderSource(st.Path)
		if err != nil {
			return nil, &BuildError{Program: spec.Name, Err: fmt.Errorf("read %s source %s: %w", st.Type, st.Path, err)}
		}
		sources[st.Path] = data
	}

	handle, err := dev.CompileAndLink(spec, sources)
	if err != nil {
		return nil, &BuildError{Program: spec.Name, Err: err}
	}

	layout, missing := ResolveLayout(spec.Kind, func(name string) Location {
		return dev.UniformLocation(handle, name)
	})
	if len(missing) > 0 {
		logger.Printf("program %s: uniforms not found: %v", spec.Name, missing)
	}
	return &Program{Handle: handle, Spec: spec, Layout: layout, Missing: missing}, nil
}
