package core

import (
	"fmt"
	"strings"

	"ctyrelay/config"
	ncerr "ctyrelay/internal/errors"
	"ctyrelay/internal/metrics"
	"ctyrelay/internal/relay"
	"ctyrelay/internal/transport"
	"ctyrelay/tunnel"
	"ctyrelay/util"
)

// Build constructs the console Mode for cfg.  cfg must already have
// its jump and escape specs applied.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Host == "" {
		return nil, &ncerr.ConfigError{Field: "host", Message: "console address is required"}
	}

	m := metrics.New()
	return &ConsoleMode{
		Dialer:  buildDialer(cfg, logger),
		Host:    cfg.Host,
		Port:    cfg.Port,
		Timeout: cfg.Timeout,
		Wake:    cfg.Wake,
		BufSize: cfg.BufferSize,
		Handler: &relay.Console{
			BufSize: cfg.BufferSize,
			Escape:  cfg.Escape,
			Metrics: m,
		},
		Logger:      logger,
		Metrics:     m,
		Description: describe(cfg),
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer layers TLS over either plain TCP or the SSH jump host.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	var base transport.Dialer = &transport.TCPDialer{Timeout: cfg.Timeout}
	if cfg.JumpEnabled {
		base = transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.JumpUser,
			Host:          cfg.JumpHost,
			Port:          cfg.JumpPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
		}, logger)
	}
	return &transport.TLSDialer{
		Base:       base,
		ServerName: cfg.ServerName,
		Timeout:    cfg.Timeout,
	}
}

func describe(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "console %s over TLS (certificate not verified)", util.FormatAddr(cfg.Host, cfg.Port))
	if cfg.ServerName != "" {
		fmt.Fprintf(&b, ", servername %q", cfg.ServerName)
	}
	if cfg.JumpEnabled {
		jump := util.FormatAddr(cfg.JumpHost, cfg.JumpPort)
		if cfg.JumpUser != "" {
			jump = cfg.JumpUser + "@" + jump
		}
		fmt.Fprintf(&b, ", via jump host %s", jump)
	}
	if cfg.Wake {
		b.WriteString(", wake CR")
	}
	if cfg.Escape != 0 {
		fmt.Fprintf(&b, ", escape 0x%02x", cfg.Escape)
	}
	fmt.Fprintf(&b, ", buffer %d", cfg.BufferSize)
	return b.String()
}
