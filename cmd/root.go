// Package cmd wires up the CLI flags and dispatches to the console core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"ctyrelay/config"
	"ctyrelay/internal/core"
	ncerr "ctyrelay/internal/errors"
	"ctyrelay/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ctyrelay/cmd.version=1.1.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the console session.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Flag values land here; only the flags the user set are copied
	// over the file and environment layers.
	flags := config.Default()
	fs := flag.NewFlagSet("ctyrelay", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── console ──────────────────────────────────────────────────
	fs.StringVarP(&flags.ConfigFile, "config", "f", "", "Console file (JSONC) with ip_addr and servername")
	fs.StringVar(&flags.ServerName, "servername", "", "TLS server name (SNI) to send")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", int(config.DefaultConnTimeout/time.Second),
		"Connect timeout in seconds (0 = none)")
	fs.BoolVar(&flags.Wake, "wake", false, "Send a carriage return after connecting")
	fs.StringVar(&flags.EscapeSpec, "escape", config.EscapeNone,
		`Local byte that ends the session, e.g. "^]" or "0x1d"`)

	// ── SSH jump host ────────────────────────────────────────────
	fs.StringVarP(&flags.JumpSpec, "jump", "J", "", "Reach the console via SSH jump host [user@]host[:port]")
	fs.StringVar(&flags.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&flags.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&flags.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&flags.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&flags.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&flags.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&flags.DryRun, "dry-run", false, "Print the planned connection and exit")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp || len(args) == 0 {
		printUsage(fs, stderr)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "ctyrelay %s\n", version)
		return nil
	}
	flags.Timeout = time.Duration(timeoutSec) * time.Second

	// ── layers ───────────────────────────────────────────────────
	cfg, err := resolve(fs, flags, fs.Args())
	if err != nil {
		return err
	}
	if err := cfg.ApplyJumpSpec(); err != nil {
		return err
	}
	if err := cfg.ApplyEscapeSpec(); err != nil {
		return err
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		fmt.Fprintf(stdout, "would connect to %s\n", mode)
		return nil
	}
	return mode.Run(ctx)
}

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitUnreachable = 1 // connect or TLS handshake failed
	ExitUsage       = 2 // bad flags, config or terminal setup
)

// ExitCode maps an Execute error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case ncerr.IsConnectionError(err):
		return ExitUnreachable
	default:
		return ExitUsage
	}
}

// ── helpers ──────────────────────────────────────────────────────────

// resolve layers defaults, the config file, the environment, the flags
// the user set, and finally the positional host, in that order.
func resolve(fs *flag.FlagSet, flags *config.Config, args []string) (*config.Config, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("too many arguments: expected a single console host, got %d", len(args))
	}

	cfg := config.Default()

	path := config.ConfigFileFromEnv()
	if fs.Changed("config") {
		path = flags.ConfigFile
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	config.LoadFromEnv(cfg)

	fs.Visit(func(f *flag.Flag) { applyFlag(cfg, flags, f.Name) })

	if len(args) == 1 {
		cfg.Host = args[0]
	}
	return cfg, nil
}

func applyFlag(cfg, flags *config.Config, name string) {
	switch name {
	case "servername":
		cfg.ServerName = flags.ServerName
	case "timeout":
		cfg.Timeout = flags.Timeout
	case "wake":
		cfg.Wake = flags.Wake
	case "escape":
		cfg.EscapeSpec = flags.EscapeSpec
	case "jump":
		cfg.JumpSpec = flags.JumpSpec
	case "ssh-key":
		cfg.SSHKeyPath = flags.SSHKeyPath
	case "ssh-password":
		cfg.SSHPassword = flags.SSHPassword
	case "ssh-agent":
		cfg.UseSSHAgent = flags.UseSSHAgent
	case "strict-hostkey":
		cfg.StrictHostKey = flags.StrictHostKey
	case "known-hosts":
		cfg.KnownHostsPath = flags.KnownHostsPath
	case "verbose":
		cfg.Verbose = flags.Verbose
	case "dry-run":
		cfg.DryRun = flags.DryRun
	}
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `ctyrelay – HSM console relay v%s

Connects the terminal to a device console over TLS on port %d.
The console certificate is not verified.

Usage:
  ctyrelay [options] <host>
  ctyrelay -f hsm.jsonc [options]
  ctyrelay -J admin@bastion [options] <host>

Options:
`, version, config.ConsolePort)
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Environment:
  %[1]sHOST, %[1]sSERVERNAME, %[1]sCONFIG, %[1]sTIMEOUT, %[1]sWAKE,
  %[1]sESCAPE, %[1]sJUMP, %[1]sSSH_KEY, %[1]sVERBOSE, ...

Examples:
  ctyrelay 10.1.10.9                          Open the console
  ctyrelay --wake --escape '^]' 10.1.10.9     Wake the prompt, exit on Ctrl-]
  ctyrelay -f /etc/ctyrelay/hsm.jsonc         Address from a console file
  ctyrelay -J ops@bastion:2222 10.1.10.9      Through a jump host
`, config.EnvPrefix)
}
