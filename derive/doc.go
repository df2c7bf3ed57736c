// Package derive holds the output processors that turn a normalized
// document into its persisted derived artifacts. The vectorization
// processor runs a load, split, embed, write sequence into the vector
// store; the tabular processor maps rows into the tabular store; the
// empty processor derives nothing.
//
// All processors are replacement-oriented: re-processing a document
// replaces its artifact set instead of appending to it. Failures carry
// the failing stage in a *ProcessingError so the orchestrator can tell
// retryable embedding backend trouble from deterministic input problems.
package derive
