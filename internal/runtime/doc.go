// Package runtime loads model bundles and runs predictions against them.
// It is structured into small files by concern:
//
//   - config.go: Config and package defaults; New applies defaults.
//   - entry.go: Entry, the cached result of loading one bundle directory.
//   - load.go: Load and the per-directory cache (one build per key).
//   - predict.go: Predict, which loads, dispatches and writes the output table.
//   - events.go, eventpub_memory.go: lifecycle events and an in-memory sink.
//   - metrics.go: Prometheus collectors.
//   - service.go: the view served by the HTTP API.
//
// External packages should use New, Load, Predict, Entries and Ready.
package runtime
