// Package ir provides the value, row and key types shared by every layer of
// rowgraph.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed; every value is non-nil (absent data is Null{})
//   - Foreign scalars travel as Opaque and are only converted on export
//   - Key equality is structural and defined by the canonical encoding, so
//     composite keys are independent of field order
//   - ColumnMap is built once per query; rows are only ever sliced
package ir
