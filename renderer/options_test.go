package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShadowQualitySizes(t *testing.T) {
	assert.Equal(t, 1024, ShadowLow.Size())
	assert.Equal(t, 2048, ShadowNormal.Size())
	assert.Equal(t, 4096, ShadowHigh.Size())
}

func TestOptionEnumsParse(t *testing.T) {
	var q ShadowQuality
	require.NoError(t, q.UnmarshalText([]byte("HIGH")))
	assert.Equal(t, ShadowHigh, q)
	assert.Error(t, q.UnmarshalText([]byte("ultra")))

	var m GuiMode
	require.NoError(t, m.UnmarshalText([]byte("final_texture")))
	assert.Equal(t, GuiFinalTexture, m)
	assert.Error(t, m.UnmarshalText([]byte("overlay")))
	assert.Equal(t, "GuiMode(9)", GuiMode(9).String())
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "postprocess", StagePostProcess.String())
	assert.Equal(t, "Stage(99)", Stage(99).String())
}
