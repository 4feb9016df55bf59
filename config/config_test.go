package config

import (
	"errors"
	"strings"
	"testing"

	ncerr "ctyrelay/internal/errors"
)

// ── ParseJumpSpec ────────────────────────────────────────────────────

func TestParseJumpSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"port zero", "host:0", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"no host", ":22", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseJumpSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyJumpSpec(t *testing.T) {
	cfg := Default()
	cfg.JumpSpec = "ops@bastion:2200"
	if err := cfg.ApplyJumpSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.JumpEnabled || cfg.JumpUser != "ops" || cfg.JumpHost != "bastion" || cfg.JumpPort != 2200 {
		t.Errorf("got %+v", cfg)
	}

	cfg.JumpSpec = "bad:port:spec"
	var ce *ncerr.ConfigError
	if err := cfg.ApplyJumpSpec(); !errors.As(err, &ce) || ce.Field != "jump" {
		t.Errorf("err = %v, want ConfigError on jump", err)
	}
}

// ── ParseEscape ──────────────────────────────────────────────────────

func TestParseEscape(t *testing.T) {
	tests := []struct {
		input   string
		want    byte
		wantErr bool
	}{
		{"", 0, false},
		{"none", 0, false},
		{"NONE", 0, false},
		{"^C", 0x03, false},
		{"^c", 0x03, false},
		{"^]", 0x1d, false},
		{"^?", 0x7f, false},
		{"0x1d", 0x1d, false},
		{"0X03", 0x03, false},
		{"~", '~', false},
		{"^@", 0, true},
		{"^1", 0, true},
		{"0x00", 0, true},
		{"0x100", 0, true},
		{"0xzz", 0, true},
		{"ctrl-c", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEscape(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEscape(%q) err = %v, wantErr = %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEscape(%q) = 0x%02x, want 0x%02x", tt.input, got, tt.want)
			}
		})
	}
}

func TestApplyEscapeSpec_Hint(t *testing.T) {
	cfg := Default()
	cfg.EscapeSpec = "ctrl-]"
	err := cfg.ApplyEscapeSpec()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "hint:") {
		t.Errorf("error %q should carry a hint", err)
	}
}

// ── Default ──────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.BufferSize != 1024 {
		t.Errorf("BufferSize = %d, want 1024", cfg.BufferSize)
	}
	if cfg.Timeout != DefaultConnTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.Escape != 0 {
		t.Errorf("Escape = 0x%02x, want disabled", cfg.Escape)
	}
}

// ── Config.Validate ──────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		c := *Default()
		c.Host = "10.1.10.9"
		if mut != nil {
			mut(&c)
		}
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantField string // empty = valid
	}{
		{"valid", valid(nil), ""},
		{"valid jump", valid(func(c *Config) {
			c.JumpEnabled, c.JumpHost, c.SSHPassword = true, "bastion", true
		}), ""},
		{"no host", valid(func(c *Config) { c.Host = "" }), "host"},
		{"url host", valid(func(c *Config) { c.Host = "https://hsm/" }), "host"},
		{"bad port", valid(func(c *Config) { c.Port = 0 }), "port"},
		{"bad buffer", valid(func(c *Config) { c.BufferSize = 0 }), "buffer-size"},
		{"negative timeout", valid(func(c *Config) { c.Timeout = -1 }), "timeout"},
		{"newline escape", valid(func(c *Config) { c.Escape = '\n' }), "escape"},
		{"jump without host", valid(func(c *Config) { c.JumpEnabled = true }), "jump"},
		{"ssh opts without jump", valid(func(c *Config) { c.UseSSHAgent = true }), "ssh-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("Validate() = %v, want ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

// TestValidate_ErrorMessages verifies that Validate returns actionable
// error messages with hints.
func TestValidate_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantSub string
	}{
		{"no host has hint", Config{Port: ConsolePort, BufferSize: BufferSize}, "hint:"},
		{"no host names env var", Config{Port: ConsolePort, BufferSize: BufferSize}, "CTYRELAY_HOST"},
		{"ssh without jump has hint", Config{Host: "h", Port: ConsolePort, BufferSize: BufferSize, SSHKeyPath: "k"}, "-J"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}
