// Package core defines the shared language of the dashvars system.
//
// This package contains:
//   - Domain entities (Dashboard, Variable, Kind)
//   - Persistence entities (Run, VariableFetch)
//   - Service interfaces (Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
