// Package locate owns the shared data model of the radio-telemetry
// position pipeline.
//
// Layer model (each layer may depend only on the layers above it):
//
//	calibration  steering vectors and surveyed site locations
//	bearing      signal vector -> likelihood over 360 compass degrees
//	window       chronological records -> overlapping time windows
//	position     windowed bearing likelihoods -> 2-D position estimate
//	track        position estimates -> speed-gated DAG -> critical path
//	pipeline     batch orchestration over the repository interfaces
//
// No SQL is allowed in this package tree. Storage lives behind the
// repository interfaces declared in repository.go and is implemented by
// internal/store/sqlite and the in-memory memstore package.
package locate
