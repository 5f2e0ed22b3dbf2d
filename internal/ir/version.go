package ir

// Version constants for the IR text format and the compiler.
const (
	// IRVersion is the version of the printed IR format. It is part of every
	// module fingerprint.
	IRVersion = "1"

	// CompilerVersion is the fnjit compiler version.
	CompilerVersion = "0.1.0"
)
