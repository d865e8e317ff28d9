package ir

const (
	// FormatVersion is bumped whenever the canonical encoding of a tree or
	// query changes shape; it is part of every fingerprint domain.
	FormatVersion = "1"

	// CompilerVersion is reported by the CLI.
	CompilerVersion = "0.3.0"
)
