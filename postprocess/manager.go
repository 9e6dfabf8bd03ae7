package postprocess

import "fmt"

// Manager owns the ordered chains and caches the enabled subset. The cache is
// marked stale by chain membership changes and enabled-flag transitions and
// rebuilt on the next read.
type Manager struct {
	chains  []*Chain
	subs    map[*Chain]int
	enabled []*Chain
	stale   bool
	rebuilt int
}

func NewManager() *Manager {
	return &Manager{subs: make(map[*Chain]int), stale: true}
}

func (m *Manager) Len() int { return len(m.chains) }

// Chains returns a copy of the chain list.
func (m *Manager) Chains() []*Chain {
	return append([]*Chain(nil), m.chains...)
}

func (m *Manager) AddChain(c *Chain) error {
	return m.InsertChain(c, len(m.chains))
}

// InsertChain inserts c before position pos; pos == Len() appends.
func (m *Manager) InsertChain(c *Chain, pos int) error {
	if c == nil {
		return ErrNilChain
	}
	if _, ok := m.subs[c]; ok {
		return fmt.Errorf("chain %q: %w", c.name, ErrDuplicateChain)
	}
	if pos < 0 || pos > len(m.chains) {
		return fmt.Errorf("insert chain at %d: %w (count %d)", pos, ErrOutOfRange, len(m.chains))
	}
	m.chains = append(m.chains, nil)
	copy(m.chains[pos+1:], m.chains[pos:])
	m.chains[pos] = c
	m.subs[c] = c.Subscribe(m.chainChanged)
	m.stale = true
	return nil
}

func (m *Manager) RemoveChainAt(pos int) error {
	if pos < 0 || pos >= len(m.chains) {
		return fmt.Errorf("remove chain at %d: %w (count %d)", pos, ErrOutOfRange, len(m.chains))
	}
	c := m.chains[pos]
	m.chains = append(m.chains[:pos], m.chains[pos+1:]...)
	c.Unsubscribe(m.subs[c])
	delete(m.subs, c)
	m.stale = true
	return nil
}

func (m *Manager) RemoveChain(c *Chain) error {
	for i, x := range m.chains {
		if x == c {
			return m.RemoveChainAt(i)
		}
	}
	return fmt.Errorf("chain: %w", ErrNotFound)
}

func (m *Manager) chainChanged(_ *Chain, kind ChangeKind) {
	if kind == ChangeEnabled {
		m.stale = true
	}
}

// EnabledChains returns the enabled chains in order. Between two changes the
// same slice is returned; callers must not modify it.
func (m *Manager) EnabledChains() []*Chain {
	if m.stale {
		m.enabled = make([]*Chain, 0, len(m.chains))
		for _, c := range m.chains {
			if c.Enabled() {
				m.enabled = append(m.enabled, c)
			}
		}
		m.stale = false
		m.rebuilt++
	}
	return m.enabled
}

// Rebuilds counts how often the enabled cache was recomputed.
func (m *Manager) Rebuilds() int { return m.rebuilt }
