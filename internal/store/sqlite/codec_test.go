package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestComplexCodec(t *testing.T) {
	in := []complex128{complex(1, -2), complex(0.5, 0), complex(-3.25, 1e-9)}
	b, err := encodeComplex(in)
	require.NoError(t, err)

	out, err := decodeComplex(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// The wire form is a flat msgpack float array.
	var flat []float64
	require.NoError(t, msgpack.Unmarshal(b, &flat))
	assert.Equal(t, []float64{1, -2, 0.5, 0, -3.25, 1e-9}, flat)
}

func TestDecodeComplexErrors(t *testing.T) {
	odd, err := msgpack.Marshal([]float64{1, 2, 3})
	require.NoError(t, err)
	_, err = decodeComplex(odd)
	assert.ErrorContains(t, err, "odd component count")

	_, err = decodeComplex([]byte{0xc1})
	assert.Error(t, err)
}

func TestEncodeEmpty(t *testing.T) {
	b, err := encodeComplex(nil)
	require.NoError(t, err)
	out, err := decodeComplex(b)
	require.NoError(t, err)
	assert.Empty(t, out)
}
