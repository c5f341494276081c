// =============================================================================
// Bank Download Aggregator - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Bank Download Aggregator CLI. It
// initializes the Cobra CLI framework and delegates command execution to the
// cmd package.
//
// USAGE:
//   aggregator process [root...]  - Aggregate every folder under the roots
//   aggregator validate           - Check the config and reference table
//   aggregator resolve <file>...  - Show the Location a file name resolves to
//   aggregator version            - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core business logic (not for external import)
//   - pkg/           : Shared filesystem utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/bank-download-aggregator/cmd"
)

// main is the entry point of the application.
func main() {
	cmd.Execute()
}
