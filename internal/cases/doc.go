// Package cases defines the echocardiography case domain model shared by
// every subsystem: the Case record itself, per-case analysis results, the
// ejection-fraction classification bands used for reporting, and the error
// kinds the store, remote client, and repository agree on.
//
// A Case carries an explicit Origin so callers never have to infer where a
// record came from by inspecting its identifier. Results are associated 1:1
// with a case by CaseID and are presentation inputs, not authoritative data.
//
// Treat this package as the single source of truth for case semantics; wire
// formats and storage schemas both derive from the types here.
package cases
