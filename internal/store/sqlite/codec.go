package sqlite

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encodeComplex packs a complex vector as a msgpack array of interleaved
// (re, im) float64 pairs.
func encodeComplex(v []complex128) ([]byte, error) {
	flat := make([]float64, 0, 2*len(v))
	for _, c := range v {
		flat = append(flat, real(c), imag(c))
	}
	b, err := msgpack.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encode complex vector: %w", err)
	}
	return b, nil
}

func decodeComplex(b []byte) ([]complex128, error) {
	var flat []float64
	if err := msgpack.Unmarshal(b, &flat); err != nil {
		return nil, fmt.Errorf("decode complex vector: %w", err)
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("decode complex vector: odd component count %d", len(flat))
	}
	v := make([]complex128, len(flat)/2)
	for i := range v {
		v[i] = complex(flat[2*i], flat[2*i+1])
	}
	return v, nil
}
