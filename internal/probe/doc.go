// Package probe runs concurrent bandwidth probes: streaming HTTP downloads of
// fixed-size payloads whose throughput is measured while the transfer is in
// flight. It is structured into small files by concern:
//
//   - registry.go: Registry type, Start/Cancel/Snapshot/Reap/Wait/Close.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: PayloadDescriptor, Phase, State, Handle.
//   - runner.go: per-probe read loop and terminal bookkeeping.
//   - speed.go: throughput estimator (pure functions).
//   - token.go: per-probe cancellation token.
//   - transport.go: Transport interface and the HTTP implementation.
//   - errors.go: sentinel errors, TransportError and classification.
//   - events.go, eventpub_memory.go: lifecycle events for observers.
//   - metrics.go: Prometheus collectors.
//
// The Registry is the only shared mutable state. Each probe is owned by a
// single runner goroutine which is the only writer of that probe's State;
// observers read whole State values via Snapshot or Get.
package probe
