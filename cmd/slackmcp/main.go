// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Command slackmcp is a read-only Slack MCP server.  It exposes tools to read
// channel history and threads, look up channels and users, list the channels
// of the authenticated user, search messages that mention the user, and
// obtain message permalinks.
//
// Usage:
//
//	slackmcp [flags]
//
// The Slack token is read from SLACK_USER_TOKEN or SLACK_BOT_TOKEN, that can
// also be set in .env, .env.txt or secrets.txt in the current directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/rusq/slackmcp/internal/client"
	"github.com/rusq/slackmcp/internal/config"
	"github.com/rusq/slackmcp/internal/mcp"
	"github.com/rusq/slackmcp/internal/network"
)

// set by the linker.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var secrets = []string{".env", ".env.txt", "secrets.txt"}

// exit codes.
const (
	exitOK = iota
	exitRuntime
	exitConfig
)

type params struct {
	flags config.Flags

	printVersion   bool
	printAPIConfig bool
}

func main() {
	loadSecrets(secrets)
	os.Exit(start(os.Args[1:], os.Stdout))
}

// start runs the program with the command line args and returns the exit
// code.
func start(args []string, stdout io.Writer) int {
	p, err := parseCmdLine(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}
	if p.printVersion {
		fmt.Fprintf(stdout, "%s (commit: %s) built on: %s\n", version, commit, date)
		return exitOK
	}
	if p.printAPIConfig {
		if err := network.WriteLimits(stdout, network.DefLimits); err != nil {
			slog.Error("failed to write the API config", "error", err)
			return exitRuntime
		}
		return exitOK
	}

	lg, closeLog, err := initLog(p.flags.LogFile, p.flags.JSONLog, p.flags.Verbose)
	if err != nil {
		slog.Error("failed to initialise logging", "error", err)
		return exitRuntime
	}
	defer closeLog()

	cfg, err := p.flags.Config(lg)
	if err != nil {
		lg.Error("configuration error", "error", err)
		return exitCode(err)
	}
	lg.Debug("configuration", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, lg, cfg); err != nil {
		lg.Error("fatal", "error", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode returns the exit code for the error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, config.ErrNoToken), errors.Is(err, config.ErrInvalid), errors.Is(err, network.ErrInvalidLimits):
		return exitConfig
	}
	return exitRuntime
}

// run authenticates with Slack and serves the MCP tools on the configured
// transport until ctx is cancelled.  opts are passed to the Slack client.
func run(ctx context.Context, lg *slog.Logger, cfg config.Config, opts ...client.Option) error {
	stopTrace := initTrace(cfg.TraceFile)
	defer stopTrace()

	hcl, err := client.NewHTTPClient(cfg.CABundle)
	if err != nil {
		return err
	}
	cl, err := client.New(ctx, cfg.Token, append([]client.Option{client.WithHTTPClient(hcl)}, opts...)...)
	if err != nil {
		return fmt.Errorf("slack authentication failed: %w", err)
	}
	id := cl.Identity()
	lg.Info("authenticated", "team", id.Team, "user", id.User, "token_kind", cfg.TokenKind)

	transport := mcp.Transport(cfg.Transport)
	if transport == mcp.TransportStdio && term.IsTerminal(int(os.Stdin.Fd())) {
		lg.Warn("stdio transport is attached to a terminal, slackmcp expects an MCP client on stdin")
	}

	srv := mcp.New(
		client.NewThrottled(cl, cfg.Limits),
		mcp.WithLogger(lg),
		mcp.WithWorkspaceURL(cfg.WorkspaceURL),
		mcp.WithPermalinkAPI(cfg.PermalinkAPI),
		mcp.WithIdentity(id),
		mcp.WithPageSizes(cfg.Limits.Request),
	)
	lg.Info("serving", "transport", transport, "listen", cfg.Listen)
	return srv.Serve(ctx, transport, cfg.Listen)
}

// loadSecrets loads the environment variables from the files, if they exist.
func loadSecrets(files []string) {
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func parseCmdLine(args []string) (params, error) {
	fs := flag.NewFlagSet("slackmcp", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(
			fs.Output(),
			"slackmcp, %s\n"+
				"Read-only Slack MCP server.  The token is read from %s or %s.\n\n"+
				"Usage:  %s [flags]\n\n",
			version, config.EnvUserToken, config.EnvBotToken, filepath.Base(os.Args[0]))
		fs.PrintDefaults()
	}

	var p params
	p.flags.Register(fs)
	fs.BoolVar(&p.printVersion, "V", false, "print version and exit")
	fs.BoolVar(&p.printAPIConfig, "print-api-config", false, "print the default Slack API limits configuration and exit")

	if err := fs.Parse(args); err != nil {
		return p, err
	}
	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected arguments: %v", fs.Args())
		fmt.Fprintln(fs.Output(), err)
		return p, err
	}
	return p, nil
}
