package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the CTYRELAY_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// ConfigFileFromEnv returns the config file named by CTYRELAY_CONFIG.
func ConfigFileFromEnv() string {
	return os.Getenv(EnvPrefix + "CONFIG")
}

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after LoadFile and
// before applying CLI flags.
func LoadFromEnv(cfg *Config) {
	if v := env("HOST"); v != "" {
		cfg.Host = v
	}
	if v := env("SERVERNAME"); v != "" {
		cfg.ServerName = v
	}
	if d, ok := envSeconds("TIMEOUT"); ok {
		cfg.Timeout = d
	}
	if envBool("WAKE") {
		cfg.Wake = true
	}
	if v := env("ESCAPE"); v != "" {
		cfg.EscapeSpec = v
	}

	// SSH jump host
	if v := env("JUMP"); v != "" {
		cfg.JumpSpec = v
	}
	if v := env("SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := env("KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func env(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envInt(key string) int {
	v := env(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(env(key))
	return v == "1" || v == "true" || v == "yes"
}

// envSeconds reads a whole number of seconds.  ok is false when the
// variable is unset or not a number; "0" is a valid value meaning no
// limit, and negative values are left for Validate to reject.
func envSeconds(key string) (d time.Duration, ok bool) {
	sec, err := strconv.Atoi(env(key))
	if err != nil {
		return 0, false
	}
	return time.Duration(sec) * time.Second, true
}
