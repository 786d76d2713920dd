// Package table holds the canonical row-set shape shared by every format
// adapter, the structural table validator and the metadata-driven row
// processor.
//
// # Table Shapes
//
// Tables are classified structurally rather than by a declared flag:
//
//   - Edge tables carry "_from" and "_to" reference cells of the form
//     "<table>/<key>" (see [Ref]).
//   - Node tables are keyed by "_key", or by a column the caller nominates.
//   - Anything else is unsupported.
//
// [Validate] checks a batch against these invariants and returns every
// problem it finds; [Process] casts raw string cells according to declared
// column metadata.
//
// # Row Numbers
//
// Errors cite rows the way they appear in a file with a header line: the
// first data row is row 2.
package table
