// Package emoji provides symbol constants for CLI output.
// These symbols keep status lines consistent across commands.
package emoji

// Reply and status symbols.
const (
	// Success marks a command that did what was asked.
	Success = "✓"

	// Error marks a failed command or an unreachable daemon.
	Error = "✗"

	// Info marks a command that changed nothing, such as pausing a paused torrent.
	Info = "i"

	// Warning marks non-fatal problems.
	Warning = "!"

	// Unknown marks a status the CLI does not recognize.
	Unknown = "?"
)

// Stream symbols used by watch.
const (
	// Broadcast prefixes a fan-out payload.
	Broadcast = "»"

	// Ack prefixes a command reply.
	Ack = "←"

	// Stop marks the end of a stream.
	Stop = "■"
)
