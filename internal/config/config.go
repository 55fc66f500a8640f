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

// Package config builds the immutable process configuration from the
// environment and command line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rusq/osenv/v2"

	"github.com/rusq/slackmcp/internal/network"
)

// Environment variables.
const (
	EnvUserToken    = "SLACK_USER_TOKEN"
	EnvBotToken     = "SLACK_BOT_TOKEN"
	EnvWorkspaceURL = "SLACK_WORKSPACE_URL"
	EnvPermalinkAPI = "SLACK_PERMALINK_API"
	EnvCertFile     = "SSL_CERT_FILE"
	EnvCABundle     = "REQUESTS_CA_BUNDLE"
	EnvTransport    = "MCP_TRANSPORT"
	EnvListen       = "MCP_LISTEN"
	EnvAPIConfig    = "SLACKMCP_API_CONFIG"
)

// DefListen is the default HTTP transport listen address.
const DefListen = "127.0.0.1:8484"

// TokenKind is the kind of the Slack token.
type TokenKind string

const (
	TokenUser TokenKind = "user"
	TokenBot  TokenKind = "bot"
)

var (
	// ErrNoToken is returned when neither user nor bot token is set.
	ErrNoToken = errors.New("no slack token: set " + EnvUserToken + " or " + EnvBotToken)
	// ErrInvalid is returned when the configuration fails the validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Config is the process configuration.  It is constructed once at startup
// and passed by value.
type Config struct {
	Token     string    `validate:"required"`
	TokenKind TokenKind `validate:"oneof=user bot"`

	// WorkspaceURL is the base URL for constructed permalinks.  If empty,
	// the URL returned by auth.test is used.
	WorkspaceURL string `validate:"omitempty,url"`
	// PermalinkAPI enables chat.getPermalink calls.
	PermalinkAPI bool
	// CABundle is the additional PEM CA bundle file.
	CABundle string `validate:"omitempty,file"`

	Transport string `validate:"oneof=stdio http"`
	Listen    string `validate:"omitempty,hostname_port"`

	Limits network.Limits `validate:"-"`

	LogFile   string
	JSONLog   bool
	TraceFile string
	Verbose   bool
}

// Flags holds the raw flag and environment values.  Call Register to bind
// the flags to a flag set, and Config, after the flags are parsed, to obtain
// the validated configuration.
type Flags struct {
	userToken string
	botToken  string

	WorkspaceURL string
	PermalinkAPI bool
	CABundle     string
	Transport    string
	Listen       string
	APIConfig    string
	LogFile      string
	JSONLog      bool
	TraceFile    string
	Verbose      bool
}

// Register reads the tokens from the environment and registers the flags
// with defaults from the environment in fs.  It must be called after the
// secrets are loaded.
func (f *Flags) Register(fs *flag.FlagSet) {
	f.userToken = osenv.Secret(EnvUserToken, "")
	f.botToken = osenv.Secret(EnvBotToken, "")

	fs.StringVar(&f.WorkspaceURL, "workspace-url", osenv.Value(EnvWorkspaceURL, ""), "workspace base `URL` for permalinks, i.e. https://example.slack.com\n(environment: "+EnvWorkspaceURL+")")
	fs.BoolVar(&f.PermalinkAPI, "permalink-api", osenv.Value(EnvPermalinkAPI, true), "use chat.getPermalink API to get permalinks, if false, permalinks\nare constructed locally (environment: "+EnvPermalinkAPI+")")
	fs.StringVar(&f.CABundle, "ca-bundle", osenv.Value(EnvCertFile, osenv.Value(EnvCABundle, "")), "additional PEM CA bundle `file`, for environments with TLS\nintercepting proxies (environment: "+EnvCertFile+" or "+EnvCABundle+")")
	fs.StringVar(&f.Transport, "transport", osenv.Value(EnvTransport, "stdio"), "MCP transport: stdio or http (environment: "+EnvTransport+")")
	fs.StringVar(&f.Listen, "listen", osenv.Value(EnvListen, DefListen), "HTTP transport listen `address` (environment: "+EnvListen+")")
	fs.StringVar(&f.APIConfig, "api-config", osenv.Value(EnvAPIConfig, ""), "configuration `file` with Slack API limits overrides.\nYou can generate one with default values with -print-api-config")
	fs.StringVar(&f.LogFile, "log", osenv.Value("LOG_FILE", ""), "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&f.JSONLog, "log-json", osenv.Value("JSON_LOG", false), "log in JSON format")
	fs.StringVar(&f.TraceFile, "trace", osenv.Value("TRACE_FILE", ""), "trace `file` (optional)")
	fs.BoolVar(&f.Verbose, "v", osenv.Value("DEBUG", false), "verbose messages")
}

// Config returns the validated configuration.  If both tokens are set, the
// user token is used and a warning is logged to lg.
func (f *Flags) Config(lg *slog.Logger) (Config, error) {
	if lg == nil {
		lg = slog.Default()
	}
	token, kind, err := SelectToken(f.userToken, f.botToken)
	if err != nil {
		return Config{}, err
	}
	if f.userToken != "" && f.botToken != "" {
		lg.Warn("both user and bot tokens are set, using the user token", "ignored", EnvBotToken)
	}
	limits := network.DefLimits
	if f.APIConfig != "" {
		limits, err = network.LoadLimits(f.APIConfig)
		if err != nil {
			return Config{}, err
		}
	}
	cfg := Config{
		Token:        token,
		TokenKind:    kind,
		WorkspaceURL: strings.TrimRight(strings.TrimSpace(f.WorkspaceURL), "/"),
		PermalinkAPI: f.PermalinkAPI,
		CABundle:     f.CABundle,
		Transport:    f.Transport,
		Listen:       f.Listen,
		Limits:       limits,
		LogFile:      f.LogFile,
		JSONLog:      f.JSONLog,
		TraceFile:    f.TraceFile,
		Verbose:      f.Verbose,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SelectToken returns the token to use.  The user token takes precedence
// over the bot token.
func SelectToken(user, bot string) (string, TokenKind, error) {
	user, bot = strings.TrimSpace(user), strings.TrimSpace(bot)
	switch {
	case user != "":
		return user, TokenUser, nil
	case bot != "":
		return bot, TokenBot, nil
	}
	return "", "", ErrNoToken
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if err := network.ValidateStruct(c, ErrInvalid); err != nil {
		return err
	}
	if c.Transport == "http" && c.Listen == "" {
		return fmt.Errorf("%w: listen address is required for http transport", ErrInvalid)
	}
	return c.Limits.Validate()
}

// LogValue implements slog.LogValuer.  The token is never logged.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("token_kind", string(c.TokenKind)),
		slog.String("workspace_url", c.WorkspaceURL),
		slog.Bool("permalink_api", c.PermalinkAPI),
		slog.Bool("ca_bundle", c.CABundle != ""),
		slog.String("transport", c.Transport),
		slog.String("listen", c.Listen),
	)
}
