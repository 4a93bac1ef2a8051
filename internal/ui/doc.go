// Package ui styles the CLI's terminal output with lipgloss.
//
// [Palette] holds the named styles (title, ok, err, warn, help) used by the commands, and
// [PrintProgress] renders [tasks.ProgressUpdate] events from a bulk pull as they arrive.
//
// Styles degrade to plain text when output is not a terminal, so piped output stays parseable.
package ui
