// Package core defines the shared language of the playground.
//
// This package contains:
//   - Workspace entities (QueryTabState, QueryPageState, ParamValue)
//   - Service interfaces (PartitionStore)
//
// The Golden Rule: pkg/core imports ONLY the validator and stdlib.
// All other packages depend on core, not the reverse.
package core
