// Package cli implements the capsule command-line interface.
//
// The commands serialize the value a script evaluates to, reconstruct and
// call serialized values, inspect and validate wire files, browse the
// graph store, and run YAML round-trip scenarios. The CLI is built with
// cobra; configuration comes from internal/config.
//
// # Commands
//
//   - encode: serialize a script's completion value
//   - decode: reconstruct a value, optionally calling it
//   - inspect: list the records of a graph
//   - validate: check a wire file against the schema
//   - store list, store get, store rm: browse and remove stored graphs
//   - test: run round-trip scenarios with golden files
//
// # Output
//
// Every command honors --format text|json|yaml. Structured formats wrap
// results in a CLIResponse envelope; errors carry an E0xx code and map to
// the exit codes ExitFailure and ExitCommandError.
//
// # Logging
//
// --verbose (-v) switches the charmbracelet/log logger on stderr to debug
// level. The logger travels in the command context and is handed to the
// codec and harness packages as a log/slog handler.
package cli
