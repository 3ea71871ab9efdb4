// Package cpu is a software compute backend. It accepts the same GLSL
// sources and program specs as the GL backend, checks them the way a driver
// would at a coarse level, and runs each dispatch on a shared worker pool,
// one task per workgroup.
package cpu

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"terrainstream/internal/compute"
)

var (
	versionDirective = regexp.MustCompile(`(?m)^\s*#version\s+\d+`)
	mainEntry        = regexp.MustCompile(`\bvoid\s+main\s*\(\s*\)`)
	uniformDecl      = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:(?:highp|mediump|lowp)\s+)?\w+\s+(\w+)\s*(?:\[[^\]]*\])?\s*;`)
)

type program struct {
	spec     compute.ProgramSpec
	uniforms map[string]compute.Location
}

// Device tracks linked programs and their uniform tables.
type Device struct {
	mu       sync.Mutex
	next     compute.ProgramHandle
	programs map[compute.ProgramHandle]*program
}

func NewDevice() *Device {
	return &Device{programs: make(map[compute.ProgramHandle]*program)}
}

func (d *Device) CompileAndLink(spec compute.ProgramSpec, sources map[string][]byte) (compute.ProgramHandle, error) {
	var all strings.Builder
	for _, st := range spec.Stages {
		src := string(sources[st.Path])
		if err := compileStage(spec.Name, st, src); err != nil {
			return 0, err
		}
		all.WriteString(src)
		all.WriteByte('\n')
	}
	linked := all.String()

	for _, name := range spec.Captures {
		if !regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(linked) {
			return 0, &compute.LinkError{Program: spec.Name, Log: fmt.Sprintf("capture varying %q is not declared", name)}
		}
	}

	uniforms := make(map[string]compute.Location)
	for _, m := range uniformDecl.FindAllStringSubmatch(linked, -1) {
		if _, ok := uniforms[m[1]]; !ok {
			uniforms[m[1]] = compute.Location(len(uniforms))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.programs[d.next] = &program{spec: spec, uniforms: uniforms}
	return d.next, nil
}

func compileStage(name string, st compute.Stage, src string) error {
	fail := func(msg string) error {
		return &compute.CompileError{Program: name, Stage: st.Type, Path: st.Path, Log: msg}
	}
	if strings.TrimSpace(src) == "" {
		return fail("0:0: error: empty source")
	}
	if !versionDirective.MatchString(src) {
		return fail("0:1: error: missing #version directive")
	}
	if !mainEntry.MatchString(src) {
		return fail("0:0: error: no definition of void main()")
	}
	if open, closed := strings.Count(src, "{"), strings.Count(src, "}"); open != closed {
		return fail(fmt.Sprintf("0:0: error: unbalanced braces (%d open, %d close)", open, closed))
	}
	return nil
}

func (d *Device) UniformLocation(p compute.ProgramHandle, name string) compute.Location {
	d.mu.Lock()
	defer d.mu.Unlock()
	prog, ok := d.programs[p]
	if !ok {
		return compute.LocationNotFound
	}
	loc, ok := prog.uniforms[name]
	if !ok {
		return compute.LocationNotFound
	}
	return loc
}

func (d *Device) DeleteProgram(p compute.ProgramHandle) {
	d.mu.Lock()
	delete(d.programs, p)
	d.mu.Unlock()
}

// Programs reports how many programs are currently linked.
func (d *Device) Programs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.programs)
}
