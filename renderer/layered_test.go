package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name  string
	layer int
}

func (i item) Layer() int { return i.layer }

func TestDrawLayeredOrder(t *testing.T) {
	items := []item{
		{"a", 0}, {"b", 2}, {"c", -1}, {"d", 1}, {"e", 2}, {"f", 0},
	}
	var log []string
	clears, err := drawLayered(items,
		func(it item) error {
			log = append(log, it.name)
			return nil
		},
		func() { log = append(log, "|") },
	)
	require.NoError(t, err)
	assert.Equal(t, 2, clears)
	assert.Equal(t, []string{"a", "c", "f", "|", "d", "|", "b", "e"}, log)
}

func TestDrawLayeredSingleLayerNeverClears(t *testing.T) {
	calls := 0
	clears, err := drawLayered([]item{{"a", 0}, {"b", 0}},
		func(item) error { return nil },
		func() { calls++ },
	)
	require.NoError(t, err)
	assert.Zero(t, clears)
	assert.Zero(t, calls)
}

func TestDrawLayeredStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	drawn := 0
	_, err := drawLayered([]item{{"a", 1}, {"b", 1}},
		func(item) error {
			drawn++
			return boom
		},
		func() {},
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, drawn)
}
