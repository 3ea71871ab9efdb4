//go:build gl

// Package glcompute runs compute programs on an OpenGL 4.3 context. Every
// call must come from the goroutine that owns the current context, usually
// the main goroutine locked to its OS thread.
package glcompute

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"

	"terrainstream/internal/compute"
)

// Device compiles and links programs on the current GL context.
type Device struct{}

func NewDevice() *Device { return &Device{} }

func stageEnum(t compute.StageType) (uint32, error) {
	switch t {
	case compute.StageVertex:
		return gl.VERTEX_SHADER, nil
	case compute.StageFragment:
		return gl.FRAGMENT_SHADER, nil
	case compute.StageGeometry:
		return gl.GEOMETRY_SHADER, nil
	case compute.StageCompute:
		return gl.COMPUTE_SHADER, nil
	default:
		return 0, fmt.Errorf("unsupported stage %s", t)
	}
}

func (d *Device) CompileAndLink(spec compute.ProgramSpec, sources map[string][]byte) (compute.ProgramHandle, error) {
	shaders := make([]uint32, 0, len(spec.Stages))
	defer func() {
		for _, sh := range shaders {
			gl.DeleteShader(sh)
		}
	}()

	vertexProcessing := false
	for _, st := range spec.Stages {
		kind, err := stageEnum(st.Type)
		if err != nil {
			return 0, &compute.CompileError{Program: spec.Name, Stage: st.Type, Path: st.Path, Log: err.Error()}
		}
		sh, err := compileShader(string(sources[st.Path]), kind)
		if err != nil {
			return 0, &compute.CompileError{Program: spec.Name, Stage: st.Type, Path: st.Path, Log: err.Error()}
		}
		shaders = append(shaders, sh)
		if st.Type == compute.StageVertex || st.Type == compute.StageGeometry {
			vertexProcessing = true
		}
	}

	prog := gl.CreateProgram()
	for _, sh := range shaders {
		gl.AttachShader(prog, sh)
	}
	// Transform feedback only applies to vertex processing stages; compute
	// programs write their captures to a storage buffer instead.
	if vertexProcessing && len(spec.Captures) > 0 {
		varyings, free := gl.Strs(cstrings(spec.Captures)...)
		gl.TransformFeedbackVaryings(prog, int32(len(spec.Captures)), varyings, gl.INTERLEAVED_ATTRIBS)
		free()
	}
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		msg := make([]byte, logLength+1)
		gl.GetProgramInfoLog(prog, logLength, nil, &msg[0])
		gl.DeleteProgram(prog)
		return 0, &compute.LinkError{Program: spec.Name, Log: strings.TrimRight(string(msg), "\x00")}
	}
	return compute.ProgramHandle(prog), nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	if strings.TrimSpace(source) == "" {
		return 0, fmt.Errorf("empty source")
	}
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		msg := make([]byte, logLength+1)
		gl.GetShaderInfoLog(shader, logLength, nil, &msg[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", strings.TrimRight(string(msg), "\x00"))
	}
	return shader, nil
}

func cstrings(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "\x00"
	}
	return out
}

func (d *Device) UniformLocation(p compute.ProgramHandle, name string) compute.Location {
	return compute.Location(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) DeleteProgram(p compute.ProgramHandle) {
	gl.DeleteProgram(uint32(p))
}
