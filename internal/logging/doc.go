// Package logging wires log/slog with tandem conventions.
//
// It provides a human-oriented console handler (colored when attached to a
// terminal), a JSON handler for structured sinks, attr helper aliases, and
// standardized field-name constants so components emit consistent keys.
package logging
