package shaders

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/gpu"
	"deferred-renderer/internal/software"
)

func TestBuiltinProgramsMatchSoftwareLibrary(t *testing.T) {
	lib := software.DefaultLibrary()
	names, err := Names(FS)
	require.NoError(t, err)
	assert.Equal(t, lib.Names(), names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			m, err := Load(FS, name)
			require.NoError(t, err)
			src, ok := lib.Lookup(name)
			require.True(t, ok)

			assert.ElementsMatch(t, src.Uniforms, m.Uniforms)
			var want, got []string
			for _, ts := range src.Techniques {
				want = append(want, ts.Name)
			}
			for _, tm := range m.Techniques {
				got = append(got, tm.Name)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestBuiltinSourcesAssemble(t *testing.T) {
	names, err := Names(FS)
	require.NoError(t, err)
	for _, name := range names {
		m, err := Load(FS, name)
		require.NoError(t, err)
		for _, tech := range m.Techniques {
			vs, fs, err := m.Sources(FS, tech)
			require.NoError(t, err, "%s/%s", name, tech.Name)
			assert.True(t, strings.HasPrefix(vs, Version+"\n"))
			assert.True(t, strings.HasPrefix(fs, Version+"\n"))
			assert.Contains(t, fs, "void main()")
		}
	}
}

func TestDefinesAndIncludesPrecedeStage(t *testing.T) {
	m, err := Load(FS, "directional_light")
	require.NoError(t, err)

	_, fs, err := m.Sources(FS, m.Techniques[0])
	require.NoError(t, err)
	def := strings.Index(fs, "#define SHADOWED")
	inc := strings.Index(fs, "bool readSurface")
	line := strings.Index(fs, "#line 1")
	require.True(t, def > 0 && inc > def && line > inc, "unexpected layout:\n%s", fs)

	_, fs, err = m.Sources(FS, m.Techniques[1])
	require.NoError(t, err)
	assert.NotContains(t, fs, "#define SHADOWED")
}

func TestLoadErrors(t *testing.T) {
	fsys := fstest.MapFS{
		"empty.toml":   {Data: []byte(`uniforms = ["A"]`)},
		"twice.toml":   {Data: []byte("[[techniques]]\nname=\"a\"\nvertex=\"v\"\nfragment=\"f\"\n[[techniques]]\nname=\"a\"\nvertex=\"v\"\nfragment=\"f\"\n")},
		"nostage.toml": {Data: []byte("[[techniques]]\nname=\"a\"\nvertex=\"v\"\n")},
		"broken.toml":  {Data: []byte("uniforms = [")},
		"missing.toml": {Data: []byte("[[techniques]]\nname=\"a\"\nvertex=\"v.glsl\"\nfragment=\"f.glsl\"\n")},
	}

	_, err := Load(fsys, "absent")
	assert.ErrorIs(t, err, gpu.ErrProgramNotFound)
	for _, name := range []string{"empty", "twice", "nostage", "broken"} {
		_, err := Load(fsys, name)
		assert.ErrorIs(t, err, ErrManifest, name)
	}

	m, err := Load(fsys, "missing")
	require.NoError(t, err)
	_, _, err = m.Sources(fsys, m.Techniques[0])
	assert.Error(t, err)
}
