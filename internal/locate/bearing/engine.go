// Package bearing turns one site's antenna-array sample into a likelihood
// over compass bearings.
package bearing

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/cmplxs"

	"github.com/banshee-data/radiotrack/internal/locate"
)

type matrixKey struct {
	site  locate.SiteID
	calID string
}

// steeringMatrix is a steering vector table flattened row-major, one row
// per calibrated bearing.
type steeringMatrix struct {
	source   *locate.SteeringVectorSet
	channels int
	bearings []int
	rows     []complex128
}

func (m *steeringMatrix) row(i int) []complex128 {
	return m.rows[i*m.channels : (i+1)*m.channels]
}

// Engine computes Bartlett bearing likelihoods. Compiled steering matrices
// are cached per (site, calibration) and rebuilt when the table changes.
// An Engine is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	matrices map[matrixKey]*steeringMatrix
}

// NewEngine returns an Engine with an empty matrix cache.
func NewEngine() *Engine {
	return &Engine{matrices: make(map[matrixKey]*steeringMatrix)}
}

func (e *Engine) compile(set *locate.SteeringVectorSet) *steeringMatrix {
	key := matrixKey{site: set.SiteID, calID: set.CalibrationID}

	e.mu.RLock()
	m, ok := e.matrices[key]
	e.mu.RUnlock()
	if ok && m.source == set {
		return m
	}

	m = &steeringMatrix{
		source:   set,
		channels: set.Channels,
		bearings: set.Bearings,
		rows:     make([]complex128, 0, len(set.Vectors)*set.Channels),
	}
	for _, v := range set.Vectors {
		m.rows = append(m.rows, v...)
	}

	e.mu.Lock()
	e.matrices[key] = m
	e.mu.Unlock()
	return m
}

// Likelihood scores every calibrated bearing θ of set by
// L(θ) = |steering(θ)ᴴ · signal|². Degrees missing from the table stay 0.
// A zero, non-finite or wrongly sized signal fails with
// locate.ErrMalformedSignal.
func (e *Engine) Likelihood(signal []complex128, set *locate.SteeringVectorSet) (Likelihood, error) {
	var l Likelihood
	if set == nil {
		return l, locate.ErrCalibrationMissing
	}
	if err := checkSignal(signal, set.Channels); err != nil {
		return l, err
	}

	m := e.compile(set)
	for i, deg := range m.bearings {
		// Dot conjugates its first argument.
		p := cmplxs.Dot(m.row(i), signal)
		l[deg] = real(p)*real(p) + imag(p)*imag(p)
	}
	return l, nil
}

// Record produces the likelihood of one record from the configured source.
// Manual mode ignores set and uses the record's operator bearing.
func (e *Engine) Record(rec *locate.SignalRecord, set *locate.SteeringVectorSet, src locate.BearingSource, sigmaDeg float64) (Likelihood, error) {
	switch src {
	case locate.BearingSourceManual:
		if rec.ManualBearing == nil {
			return Likelihood{}, fmt.Errorf("record %d has no manual bearing: %w", rec.ID, locate.ErrMalformedSignal)
		}
		return Manual(*rec.ManualBearing, sigmaDeg)
	default:
		l, err := e.Likelihood(rec.Signal, set)
		if err != nil {
			return l, fmt.Errorf("record %d: %w", rec.ID, err)
		}
		return l, nil
	}
}

// Manual builds a wrapped Gaussian kernel of width sigmaDeg around an
// operator-entered bearing, peaking at 1.
func Manual(bearingDeg, sigmaDeg float64) (Likelihood, error) {
	var l Likelihood
	if math.IsNaN(bearingDeg) || math.IsInf(bearingDeg, 0) {
		return l, fmt.Errorf("manual bearing %v: %w", bearingDeg, locate.ErrMalformedSignal)
	}
	if !(sigmaDeg > 0) {
		return l, fmt.Errorf("manual bearing sigma %v must be positive", sigmaDeg)
	}
	centre := math.Mod(bearingDeg, 360)
	if centre < 0 {
		centre += 360
	}
	for deg := range l {
		d := math.Abs(float64(deg) - centre)
		if d > 180 {
			d = 360 - d
		}
		l[deg] = math.Exp(-d * d / (2 * sigmaDeg * sigmaDeg))
	}
	return l, nil
}

func checkSignal(signal []complex128, channels int) error {
	if len(signal) == 0 || len(signal) != channels {
		return fmt.Errorf("signal has %d channels, calibration has %d: %w", len(signal), channels, locate.ErrMalformedSignal)
	}
	for _, v := range signal {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) {
			return fmt.Errorf("signal contains non-finite sample: %w", locate.ErrMalformedSignal)
		}
	}
	if cmplxs.Norm(signal, 2) == 0 {
		return fmt.Errorf("signal has zero amplitude: %w", locate.ErrMalformedSignal)
	}
	return nil
}
