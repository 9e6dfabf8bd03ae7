// Package postprocess holds the ordered post-processing configuration the
// renderer consumes: chains of effects and the manager that owns them.
package postprocess

import (
	"errors"
	"fmt"

	"deferred-renderer/effect"
)

var (
	ErrOutOfRange     = errors.New("position out of range")
	ErrNotFound       = errors.New("not found")
	ErrNilEffect      = errors.New("nil effect")
	ErrNilChain       = errors.New("nil chain")
	ErrDuplicateChain = errors.New("chain already added")
)

// ChangeKind tells observers what changed on a chain.
type ChangeKind int

const (
	ChangeEnabled ChangeKind = iota
	ChangeEffects
)

// Observer is notified synchronously after a chain changes.
type Observer func(c *Chain, kind ChangeKind)

type subscription struct {
	id int
	fn Observer
}

// Chain is an ordered list of effects applied one after another. It does no
// rendering itself.
type Chain struct {
	name      string
	effects   []*effect.Effect
	enabled   bool
	observers []subscription
	nextID    int
}

// NewChain returns an empty, enabled chain.
func NewChain(name string) *Chain {
	return &Chain{name: name, enabled: true}
}

func (c *Chain) Name() string { return c.name }

func (c *Chain) Len() int { return len(c.effects) }

// Effects returns a copy of the effect list.
func (c *Chain) Effects() []*effect.Effect {
	return append([]*effect.Effect(nil), c.effects...)
}

func (c *Chain) AddEffect(e *effect.Effect) error {
	if e == nil {
		return ErrNilEffect
	}
	c.effects = append(c.effects, e)
	c.notify(ChangeEffects)
	return nil
}

// InsertEffect inserts e before position pos; pos == Len() appends.
func (c *Chain) InsertEffect(e *effect.Effect, pos int) error {
	if e == nil {
		return ErrNilEffect
	}
	if pos < 0 || pos > len(c.effects) {
		return fmt.Errorf("chain %q: insert at %d: %w (count %d)", c.name, pos, ErrOutOfRange, len(c.effects))
	}
	c.effects = append(c.effects, nil)
	copy(c.effects[pos+1:], c.effects[pos:])
	c.effects[pos] = e
	c.notify(ChangeEffects)
	return nil
}

func (c *Chain) RemoveEffectAt(pos int) error {
	if pos < 0 || pos >= len(c.effects) {
		return fmt.Errorf("chain %q: remove at %d: %w (count %d)", c.name, pos, ErrOutOfRange, len(c.effects))
	}
	c.effects = append(c.effects[:pos], c.effects[pos+1:]...)
	c.notify(ChangeEffects)
	return nil
}

// RemoveEffect removes the first occurrence of e.
func (c *Chain) RemoveEffect(e *effect.Effect) error {
	for i, x := range c.effects {
		if x == e {
			return c.RemoveEffectAt(i)
		}
	}
	return fmt.Errorf("chain %q: effect: %w", c.name, ErrNotFound)
}

func (c *Chain) Enabled() bool { return c.enabled }

func (c *Chain) Enable() { c.SetEnabled(true) }

func (c *Chain) Disable() { c.SetEnabled(false) }

// SetEnabled notifies observers only when the flag actually changes.
func (c *Chain) SetEnabled(v bool) {
	if c.enabled == v {
		return
	}
	c.enabled = v
	c.notify(ChangeEnabled)
}

// Subscribe registers fn and returns an id for Unsubscribe.
func (c *Chain) Subscribe(fn Observer) int {
	c.nextID++
	c.observers = append(c.observers, subscription{id: c.nextID, fn: fn})
	return c.nextID
}

func (c *Chain) Unsubscribe(id int) {
	for i, s := range c.observers {
		if s.id == id {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

func (c *Chain) notify(kind ChangeKind) {
	// Observers may unsubscribe from inside the callback.
	subs := append([]subscription(nil), c.observers...)
	for _, s := range subs {
		s.fn(c, kind)
	}
}
