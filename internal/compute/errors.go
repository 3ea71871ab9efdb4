package compute

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound   = errors.New("shader source not found")
	ErrPipelineDisabled = errors.New("compute pipeline disabled")
	ErrDispatchTimeout  = errors.New("dispatch timed out")
)

// CompileError carries the compiler diagnostic for one stage.
type CompileError struct {
	Program string
	Stage   StageType
	Path    string
	Log     string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s %s stage (%s): %s", e.Program, e.Stage, e.Path, e.Log)
}

type LinkError struct {
	Program string
	Log     string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s: %s", e.Program, e.Log)
}

// BuildError wraps whatever stopped a program from being built.
type BuildError struct {
	Program string
	Err     error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build program %s: %v", e.Program, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }
