// Package shaders holds the GLSL programs of the OpenGL backend. Each
// program is described by a TOML manifest at the root of the tree naming its
// uniforms and techniques; a technique is a vertex/fragment pair compiled
// with an optional list of preprocessor defines.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"deferred-renderer/gpu"
)

// Version is prepended to every stage.
const Version = "#version 410 core"

// FS is the built-in program set.
//
//go:embed *.toml glsl/*.glsl
var FS embed.FS

var ErrManifest = errors.New("invalid program manifest")

type Technique struct {
	Name     string   `toml:"name"`
	Vertex   string   `toml:"vertex"`
	Fragment string   `toml:"fragment"`
	Defines  []string `toml:"defines"`
}

type Manifest struct {
	Name     string   `toml:"-"`
	Uniforms []string `toml:"uniforms"`
	// Include files are prepended to every fragment stage.
	Include    []string    `toml:"include"`
	Techniques []Technique `toml:"techniques"`
}

// Load reads and validates the manifest of program name from fsys.
func Load(fsys fs.FS, name string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, name+".toml")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", gpu.ErrProgramNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", name, err)
	}
	m := &Manifest{Name: name}
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifest, name, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	if len(m.Techniques) == 0 {
		return fmt.Errorf("%w: %s declares no techniques", ErrManifest, m.Name)
	}
	seen := make(map[string]bool, len(m.Techniques))
	for _, t := range m.Techniques {
		if t.Name == "" {
			return fmt.Errorf("%w: %s has an unnamed technique", ErrManifest, m.Name)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: %s declares technique %q twice", ErrManifest, m.Name, t.Name)
		}
		seen[t.Name] = true
		if t.Vertex == "" || t.Fragment == "" {
			return fmt.Errorf("%w: %s technique %q is missing a stage", ErrManifest, m.Name, t.Name)
		}
	}
	return nil
}

// Sources assembles the vertex and fragment source of t. A #line directive
// keeps compiler messages pointing into the stage file.
func (m *Manifest) Sources(fsys fs.FS, t Technique) (vertex, fragment string, err error) {
	vertex, err = assemble(fsys, t.Defines, nil, t.Vertex)
	if err != nil {
		return "", "", fmt.Errorf("%s/%s: %w", m.Name, t.Name, err)
	}
	fragment, err = assemble(fsys, t.Defines, m.Include, t.Fragment)
	if err != nil {
		return "", "", fmt.Errorf("%s/%s: %w", m.Name, t.Name, err)
	}
	return vertex, fragment, nil
}

func assemble(fsys fs.FS, defines, include []string, file string) (string, error) {
	var b strings.Builder
	b.WriteString(Version)
	b.WriteByte('\n')
	for _, d := range defines {
		fmt.Fprintf(&b, "#define %s\n", d)
	}
	for _, inc := range include {
		src, err := fs.ReadFile(fsys, inc)
		if err != nil {
			return "", fmt.Errorf("include %s: %w", inc, err)
		}
		b.Write(src)
		b.WriteByte('\n')
	}
	src, err := fs.ReadFile(fsys, file)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", file, err)
	}
	b.WriteString("#line 1\n")
	b.Write(src)
	return b.String(), nil
}

// Names lists the programs with a manifest in fsys.
func Names(fsys fs.FS) ([]string, error) {
	matches, err := fs.Glob(fsys, "*.toml")
	if err != nil {
		return nil, err
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = strings.TrimSuffix(path.Base(m), ".toml")
	}
	sort.Strings(names)
	return names, nil
}
