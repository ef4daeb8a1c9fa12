package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidpower-lab/pistonsweep/internal/config"
)

func baseSet() ParameterSet {
	return ParameterSet{
		ParamLK:  100.0,
		ParamLZ0: 50.0,
		ParamLKG: 30.0,
		ParamLSK: 20.0,
	}
}

func TestDerive(t *testing.T) {
	t.Run("reference scenario at scale 5", func(t *testing.T) {
		d, err := Derive(baseSet(), 5, config.SignMinus)
		require.NoError(t, err)
		assert.Equal(t, 105.0, d.LK)
		assert.Equal(t, 45.0, d.LZ0)
		assert.InDelta(t, 34.3, d.LKG, 1e-12)
		assert.Equal(t, 22.25, d.LSK)
	})

	t.Run("plus convention flips only lZ0", func(t *testing.T) {
		minus, err := Derive(baseSet(), 5, config.SignMinus)
		require.NoError(t, err)
		plus, err := Derive(baseSet(), 5, config.SignPlus)
		require.NoError(t, err)

		assert.Equal(t, 55.0, plus.LZ0)
		assert.Equal(t, minus.LK, plus.LK)
		assert.Equal(t, minus.LKG, plus.LKG)
		assert.Equal(t, minus.LSK, plus.LSK)
	})

	t.Run("deterministic: identical inputs, bit-identical outputs", func(t *testing.T) {
		a, err := Derive(baseSet(), 3.7, config.SignMinus)
		require.NoError(t, err)
		b, err := Derive(baseSet(), 3.7, config.SignMinus)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("zero scale is the identity", func(t *testing.T) {
		d, err := Derive(baseSet(), 0, config.SignMinus)
		require.NoError(t, err)
		assert.Equal(t, baseSet(), d.Values())
	})

	t.Run("missing required parameter is terminal", func(t *testing.T) {
		base := baseSet()
		delete(base, ParamLZ0)
		_, err := Derive(base, 5, config.SignMinus)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ParamLZ0)
	})
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "105", FormatValue(105.0))
	assert.Equal(t, "34.3", FormatValue(34.3))
	assert.Equal(t, "22.25", FormatValue(22.25))
	// Full precision round-trips.
	assert.Equal(t, "30.000000000000004", FormatValue(30.000000000000004))
}
