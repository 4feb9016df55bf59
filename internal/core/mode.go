// Package core is the orchestration layer.  It composes the terminal,
// the transport and the relay into a runnable console session and
// provides a builder that assembles one from a Config.
//
// Architecture layers (bottom → top):
//
//	stream  →  transport / terminal  →  relay  →  session  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete, runnable operation that owns its lifecycle from
// connection establishment to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
