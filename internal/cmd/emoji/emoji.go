// Package emoji provides symbol constants for CLI output.
package emoji

// Status symbols.
const (
	// Success marks a completed operation.
	Success = "✓"

	// Error marks a failed operation.
	Error = "✗"

	// Stop marks a shutdown.
	Stop = "■"

	// Warning marks a non-fatal problem, such as a duplicate mapping.
	Warning = "!"

	// Info marks informational messages.
	Info = "i"

	// Arrow points from a cell to where its value came from.
	Arrow = "→"
)

// Cell markers used in grid output.
const (
	// Mapped marks a cell with a mapping.
	Mapped = "●"

	// Formula marks a read-only formula cell.
	Formula = "ƒ"

	// Edited marks a cell whose mapping the reviewer changed.
	Edited = "✎"
)
