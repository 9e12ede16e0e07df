package locate

import "errors"

var (
	// ErrCalibrationMissing reports a site with no steering vectors for the
	// configured calibration. The site is excluded from the affected range.
	ErrCalibrationMissing = errors.New("calibration missing")

	// ErrNoCalibration reports that no site has usable calibration at all.
	ErrNoCalibration = errors.New("no calibrated sites")

	// ErrInsufficientData reports a window with fewer contributing sites than
	// required for a position fix. The window becomes a gap in the output.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrCycleDetected reports a malformed track graph. Reconstruction aborts.
	ErrCycleDetected = errors.New("cycle detected in track graph")

	// ErrMalformedSignal reports a zero-amplitude, non-finite or mis-sized
	// signal vector. The record is skipped.
	ErrMalformedSignal = errors.New("malformed signal")
)
