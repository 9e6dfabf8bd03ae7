package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deferred-renderer/effect"
	"deferred-renderer/internal/software"
)

func newEffects(t *testing.T, names ...string) []*effect.Effect {
	t.Helper()
	dev := software.New(4, 4, nil)
	prog, err := dev.LoadProgram("grayscale")
	require.NoError(t, err)
	out := make([]*effect.Effect, len(names))
	for i, name := range names {
		out[i], err = effect.New(name, prog)
		require.NoError(t, err)
	}
	return out
}

func effectNames(c *Chain) []string {
	var names []string
	for _, e := range c.Effects() {
		names = append(names, e.Name())
	}
	return names
}

func TestChainEditing(t *testing.T) {
	fx := newEffects(t, "a", "b", "c", "d")
	c := NewChain("main")
	assert.True(t, c.Enabled())

	require.NoError(t, c.AddEffect(fx[0]))
	require.NoError(t, c.AddEffect(fx[2]))
	require.NoError(t, c.InsertEffect(fx[1], 1))
	require.NoError(t, c.InsertEffect(fx[3], 3))
	assert.Equal(t, []string{"a", "b", "c", "d"}, effectNames(c))

	assert.ErrorIs(t, c.InsertEffect(fx[0], 5), ErrOutOfRange)
	assert.ErrorIs(t, c.InsertEffect(fx[0], -1), ErrOutOfRange)
	assert.ErrorIs(t, c.AddEffect(nil), ErrNilEffect)

	require.NoError(t, c.RemoveEffectAt(0))
	require.NoError(t, c.RemoveEffect(fx[3]))
	assert.Equal(t, []string{"b", "c"}, effectNames(c))
	assert.ErrorIs(t, c.RemoveEffect(fx[3]), ErrNotFound)
	assert.ErrorIs(t, c.RemoveEffectAt(2), ErrOutOfRange)
	assert.ErrorIs(t, c.RemoveEffectAt(-1), ErrOutOfRange)
	assert.Equal(t, 2, c.Len())
}

func TestChainEffectsIsACopy(t *testing.T) {
	fx := newEffects(t, "a")
	c := NewChain("main")
	require.NoError(t, c.AddEffect(fx[0]))

	list := c.Effects()
	list[0] = nil
	assert.Equal(t, []string{"a"}, effectNames(c))
}

func TestChainObservers(t *testing.T) {
	fx := newEffects(t, "a")
	c := NewChain("main")
	var kinds []ChangeKind
	id := c.Subscribe(func(_ *Chain, k ChangeKind) { kinds = append(kinds, k) })

	c.Enable()
	assert.Empty(t, kinds, "enabling an enabled chain is not a change")
	c.Disable()
	c.Disable()
	require.NoError(t, c.AddEffect(fx[0]))
	assert.Equal(t, []ChangeKind{ChangeEnabled, ChangeEffects}, kinds)

	c.Unsubscribe(id)
	c.Enable()
	assert.Len(t, kinds, 2)
}

func TestObserverMayUnsubscribeDuringNotify(t *testing.T) {
	c := NewChain("main")
	calls := 0
	var id int
	id = c.Subscribe(func(*Chain, ChangeKind) {
		calls++
		c.Unsubscribe(id)
	})
	other := 0
	c.Subscribe(func(*Chain, ChangeKind) { other++ })

	c.Disable()
	c.Enable()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, other)
}

func TestManagerEnabledCache(t *testing.T) {
	m := NewManager()
	a, b, c := NewChain("a"), NewChain("b"), NewChain("c")
	require.NoError(t, m.AddChain(a))
	require.NoError(t, m.AddChain(c))
	require.NoError(t, m.InsertChain(b, 1))

	assert.Equal(t, []*Chain{a, b, c}, m.EnabledChains())
	assert.Equal(t, 1, m.Rebuilds())
	m.EnabledChains()
	assert.Equal(t, 1, m.Rebuilds(), "reads between changes reuse the cache")

	b.Disable()
	assert.Equal(t, []*Chain{a, c}, m.EnabledChains())
	assert.Equal(t, 2, m.Rebuilds())

	fx := newEffects(t, "x")
	require.NoError(t, a.AddEffect(fx[0]))
	m.EnabledChains()
	assert.Equal(t, 2, m.Rebuilds(), "effect edits do not change the enabled set")

	require.NoError(t, m.RemoveChain(a))
	assert.Equal(t, []*Chain{c}, m.EnabledChains())
	a.Disable()
	m.EnabledChains()
	assert.Equal(t, 3, m.Rebuilds(), "removed chains are no longer observed")
}

func TestManagerErrors(t *testing.T) {
	m := NewManager()
	a := NewChain("a")
	assert.ErrorIs(t, m.AddChain(nil), ErrNilChain)
	require.NoError(t, m.AddChain(a))
	assert.ErrorIs(t, m.AddChain(a), ErrDuplicateChain)
	assert.ErrorIs(t, m.InsertChain(NewChain("b"), 3), ErrOutOfRange)
	assert.ErrorIs(t, m.RemoveChainAt(1), ErrOutOfRange)
	assert.ErrorIs(t, m.RemoveChain(NewChain("c")), ErrNotFound)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, []*Chain{a}, m.Chains())
}
