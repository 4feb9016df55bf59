// Package config defines the runtime configuration for ctyrelay and
// the parsers for jump host and escape byte specs.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "ctyrelay/internal/errors"
)

// Config holds every tuneable for one console session.
type Config struct {
	// ── Console ──────────────────────────────────────────────────────
	Host       string
	Port       int // always ConsolePort
	ServerName string
	BufferSize int
	Timeout    time.Duration
	Wake       bool
	EscapeSpec string // raw --escape value
	Escape     byte   // parsed from EscapeSpec, 0 = disabled
	ConfigFile string

	// ── SSH jump host ────────────────────────────────────────────────
	JumpSpec       string // raw [user@]host[:port] from -J
	JumpEnabled    bool
	JumpUser       string
	JumpHost       string
	JumpPort       int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	DryRun  bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Port:       ConsolePort,
		BufferSize: BufferSize,
		Timeout:    DefaultConnTimeout,
		EscapeSpec: EscapeNone,
	}
}

// ── Jump-spec parser ─────────────────────────────────────────────────

// jumpRe matches [user@]host[:port].
var jumpRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseJumpSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseJumpSpec(spec string) (user, host string, port int, err error) {
	m := jumpRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid jump host %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid jump host port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyJumpSpec parses JumpSpec into the Jump* fields.  An empty spec
// disables the jump host.
func (c *Config) ApplyJumpSpec() error {
	if c.JumpSpec == "" {
		c.JumpEnabled = false
		return nil
	}
	user, host, port, err := ParseJumpSpec(c.JumpSpec)
	if err != nil {
		return &ncerr.ConfigError{Field: "jump", Value: c.JumpSpec, Message: err.Error()}
	}
	c.JumpEnabled = true
	c.JumpUser = user
	c.JumpHost = host
	c.JumpPort = port
	return nil
}

// ── Escape-byte parser ───────────────────────────────────────────────

// ParseEscape turns an escape spec into a byte.  Accepted forms are
// "none" (or empty) for disabled, caret notation such as "^]" or "^C",
// hex such as "0x1d", and a single literal character.
func ParseEscape(spec string) (byte, error) {
	switch {
	case spec == "" || strings.EqualFold(spec, EscapeNone):
		return 0, nil

	case len(spec) == 2 && spec[0] == '^':
		ch := spec[1]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if ch == '?' {
			return 0x7f, nil
		}
		if ch <= '@' || ch > '_' {
			return 0, fmt.Errorf("invalid control character %q", spec)
		}
		return ch - '@', nil

	case strings.HasPrefix(spec, "0x") || strings.HasPrefix(spec, "0X"):
		n, err := strconv.ParseUint(spec[2:], 16, 8)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid escape byte %q", spec)
		}
		return byte(n), nil

	case len(spec) == 1:
		return spec[0], nil
	}
	return 0, fmt.Errorf("invalid escape %q", spec)
}

// ApplyEscapeSpec parses EscapeSpec into Escape.
func (c *Config) ApplyEscapeSpec() error {
	b, err := ParseEscape(c.EscapeSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "escape",
			Value:   c.EscapeSpec,
			Message: err.Error(),
			Hint:    `use caret notation like "^]", hex like "0x1d", or "none"`,
		}
	}
	c.Escape = b
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "console address is required",
			Hint:    "pass it as the first argument, set " + EnvPrefix + "HOST, or give ip_addr in --config",
		}
	}
	if strings.ContainsAny(c.Host, " /") {
		return &ncerr.ConfigError{Field: "host", Value: c.Host, Message: "not a host name or address"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &ncerr.ConfigError{Field: "port", Value: c.Port, Message: "out of range 1-65535"}
	}
	if c.BufferSize < 1 {
		return &ncerr.ConfigError{Field: "buffer-size", Value: c.BufferSize, Message: "must be positive"}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must not be negative",
			Hint:    "use 0 to wait as long as the network allows",
		}
	}
	if c.Escape == '\r' || c.Escape == '\n' {
		return &ncerr.ConfigError{
			Field:   "escape",
			Value:   c.EscapeSpec,
			Message: "line endings cannot be the escape byte",
		}
	}

	if c.JumpEnabled && c.JumpHost == "" {
		return &ncerr.ConfigError{Field: "jump", Value: c.JumpSpec, Message: "jump host is required"}
	}
	if !c.JumpEnabled && (c.SSHKeyPath != "" || c.SSHPassword || c.UseSSHAgent) {
		return &ncerr.ConfigError{
			Field:   "ssh-key",
			Message: "SSH options given without a jump host",
			Hint:    "add -J [user@]bastion[:port]",
		}
	}
	return nil
}
