package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All defaults live here so CLI flags, the config file and environment
// loading agree on them.

const (
	// ConsolePort is the TCP port the console listens on.  It is not
	// configurable.
	ConsolePort = 8081

	// BufferSize is the per-read chunk size of the relay loops.
	BufferSize = 1024

	// DefaultConnTimeout bounds the TCP connect and TLS handshake.
	DefaultConnTimeout = 30 * time.Second

	// DefaultSSHPort is the standard SSH port for the jump host.
	DefaultSSHPort = 22

	// EscapeNone disables the local escape byte.
	EscapeNone = "none"

	// EnvPrefix is the prefix of every environment variable.
	EnvPrefix = "CTYRELAY_"
)
