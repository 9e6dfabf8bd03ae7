// Package effect binds a shader program to a set of named, typed parameters
// and an optional fixed pipeline state.
package effect

import (
	"fmt"

	"deferred-renderer/gpu"
)

// Effect is one shader program invocation: a program, the technique whose
// first pass is used, the parameters pushed before every draw and an optional
// state override.
//
// Technique names are resolved when assigned. A name the program lacks is
// rejected with ErrUnknownTechnique and the effect keeps its previous
// technique. An effect only ends up without a technique when its program
// declares none; Apply then still applies state but reports false.
type Effect struct {
	name      string
	program   gpu.Program
	technique gpu.Technique
	params    map[string]*Parameter
	order     []*Parameter
	state     gpu.StateOverride
}

// New creates an effect on the first technique of program.
func New(name string, program gpu.Program) (*Effect, error) {
	if program == nil {
		return nil, fmt.Errorf("effect %q: %w", name, ErrNilProgram)
	}
	e := &Effect{
		name:    name,
		program: program,
		params:  make(map[string]*Parameter),
	}
	if ts := program.Techniques(); len(ts) > 0 {
		e.technique = ts[0]
	}
	return e, nil
}

func (e *Effect) Name() string { return e.name }

func (e *Effect) Program() gpu.Program { return e.program }

// Technique is the current technique name, empty in the no-technique state.
func (e *Effect) Technique() string {
	if e.technique == nil {
		return ""
	}
	return e.technique.Name()
}

func (e *Effect) SetTechnique(name string) error {
	t, ok := e.program.Technique(name)
	if !ok {
		return fmt.Errorf("effect %q: %w: %q on program %q", e.name, ErrUnknownTechnique, name, e.program.Name())
	}
	e.technique = t
	return nil
}

// SetProgram swaps the program, keeping the current technique name and
// re-resolving every parameter binding. If the new program lacks the
// technique nothing changes.
func (e *Effect) SetProgram(p gpu.Program) error {
	if p == nil {
		return fmt.Errorf("effect %q: %w", e.name, ErrNilProgram)
	}
	var tech gpu.Technique
	if e.technique != nil {
		t, ok := p.Technique(e.technique.Name())
		if !ok {
			return fmt.Errorf("effect %q: %w: %q on program %q", e.name, ErrUnknownTechnique, e.technique.Name(), p.Name())
		}
		tech = t
	} else if ts := p.Techniques(); len(ts) > 0 {
		tech = ts[0]
	}

	e.program = p
	e.technique = tech
	for _, param := range e.order {
		e.bind(param)
	}
	return nil
}

func (e *Effect) bind(p *Parameter) {
	p.uniform = nil
	if u, ok := e.program.Uniform(p.name); ok {
		p.uniform = u
	}
}

// AddParameter binds p to the uniform of the same name. Parameters the
// program does not use are kept and re-bound on SetProgram.
func (e *Effect) AddParameter(p *Parameter) error {
	if _, ok := e.params[p.name]; ok {
		return fmt.Errorf("effect %q: %w: %q", e.name, ErrDuplicateParameter, p.name)
	}
	e.params[p.name] = p
	e.order = append(e.order, p)
	e.bind(p)
	return nil
}

func (e *Effect) RemoveParameter(name string) error {
	p, ok := e.params[name]
	if !ok {
		return fmt.Errorf("effect %q: %w: %q", e.name, ErrUnknownParameter, name)
	}
	delete(e.params, name)
	for i, q := range e.order {
		if q == p {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	p.uniform = nil
	return nil
}

func (e *Effect) Parameter(name string) (*Parameter, bool) {
	p, ok := e.params[name]
	return p, ok
}

// Parameters returns the parameters in insertion order.
func (e *Effect) Parameters() []*Parameter {
	return append([]*Parameter(nil), e.order...)
}

func (e *Effect) SetState(s gpu.StateOverride) { e.state = s }

func (e *Effect) State() gpu.StateOverride { return e.state }

// Apply pushes every parameter, applies the state override and activates the
// first pass of the technique. It returns false when the draw must be
// skipped.
func (e *Effect) Apply(env Environment, node Transformable) bool {
	for _, p := range e.order {
		p.push(env, node)
	}
	gpu.ApplyState(env.Device(), e.state)
	if e.technique == nil {
		return false
	}
	passes := e.technique.Passes()
	if len(passes) == 0 {
		return false
	}
	passes[0].Apply()
	return true
}

// Draw applies the effect and runs draw when applicable.
func (e *Effect) Draw(env Environment, node Transformable, draw func()) bool {
	if !e.Apply(env, node) {
		return false
	}
	draw()
	return true
}
