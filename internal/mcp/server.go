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

package mcp

// In this file: MCP server construction and transport management.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/slackmcp/internal/client"
	"github.com/rusq/slackmcp/internal/network"
)

const (
	serverName    = "slackmcp"
	serverVersion = "1.0.0"
)

// defBaseURL is used for constructed permalinks when the workspace URL is
// unknown.
const defBaseURL = "https://slack.com"

// shutdownTimeout is the time given to the HTTP transport to finish
// in-flight requests.
const shutdownTimeout = 5 * time.Second

// Transport selects how the MCP server communicates with its client.
type Transport string

const (
	// TransportStdio uses stdin/stdout for communication (default, suitable
	// for local agent integrations such as Claude Desktop).
	TransportStdio Transport = "stdio"
	// TransportHTTP uses Streamable HTTP transport (suitable for remote
	// agents or when multiple concurrent clients are needed).
	TransportHTTP Transport = "http"
)

// Server wraps an MCP server and the Slack client.
type Server struct {
	mcp    *mcpsrv.MCPServer
	cl     client.Slack
	logger *slog.Logger

	base         string // workspace base URL, no trailing slash
	permalinkAPI bool
	self         client.Identity
	pages        network.RequestLimit
	now          func() time.Time
}

type options struct {
	logger       *slog.Logger
	workspaceURL string
	permalinkAPI bool
	identity     client.Identity
	pages        network.RequestLimit
	now          func() time.Time
}

// Option configures the Server.
type Option func(*options)

// WithLogger sets the logger.  nil means slog.Default().
func WithLogger(lg *slog.Logger) Option {
	return func(o *options) {
		o.logger = lg
	}
}

// WithWorkspaceURL sets the workspace base URL used for constructed
// permalinks.  It takes precedence over the URL of the identity.
func WithWorkspaceURL(u string) Option {
	return func(o *options) {
		o.workspaceURL = u
	}
}

// WithPermalinkAPI enables or disables chat.getPermalink calls.  When
// disabled, permalinks are constructed locally.
func WithPermalinkAPI(enabled bool) Option {
	return func(o *options) {
		o.permalinkAPI = enabled
	}
}

// WithIdentity sets the identity of the authenticated user, as reported by
// auth.test.
func WithIdentity(id client.Identity) Option {
	return func(o *options) {
		o.identity = id
	}
}

// WithPageSizes sets the page sizes of the paginated calls.
func WithPageSizes(r network.RequestLimit) Option {
	return func(o *options) {
		if r.Channels > 0 {
			o.pages.Channels = r.Channels
		}
		if r.Replies > 0 {
			o.pages.Replies = r.Replies
		}
	}
}

// WithClock sets the clock used to compute time windows.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// New creates a new MCP server backed by the Slack client cl.  The server is
// populated with all available tools but does not start listening until one
// of the Serve* methods is called.
func New(cl client.Slack, opts ...Option) *Server {
	o := options{
		permalinkAPI: true,
		pages:        network.DefLimits.Request,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	s := &Server{
		cl:           cl,
		logger:       o.logger,
		base:         baseURL(o.workspaceURL, o.identity.WorkspaceURL),
		permalinkAPI: o.permalinkAPI,
		self:         o.identity,
		pages:        o.pages,
		now:          o.now,
	}

	mcpServer := mcpsrv.NewMCPServer(
		serverName,
		serverVersion,
		mcpsrv.WithInstructions(instructions(s.self)),
		mcpsrv.WithToolCapabilities(false),
		mcpsrv.WithRecovery(),
		mcpsrv.WithToolHandlerMiddleware(s.logMiddleware),
	)

	// Register all tools.
	for _, t := range s.tools() {
		mcpServer.AddTool(t.Tool, t.Handler)
	}

	s.mcp = mcpServer
	return s
}

// baseURL returns the first non-empty URL, without the trailing slash.
func baseURL(urls ...string) string {
	for _, u := range urls {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			return u
		}
	}
	return defBaseURL
}

// instructions returns the server instructions that describe the workspace
// to the connecting agent.
func instructions(id client.Identity) string {
	ws := "a Slack workspace"
	if id.Team != "" {
		ws = fmt.Sprintf("the Slack workspace %q", id.Team)
	}
	who := ""
	if id.User != "" {
		who = fmt.Sprintf(" The API calls are made on behalf of @%s (%s).", id.User, id.UserID)
	}
	return fmt.Sprintf(`You are connected to a read-only Slack MCP server for %s.%s

Available tools allow you to:
- List the channels you are a member of
- Read recent messages from a channel
- Read all messages of a thread
- Get channel and user information
- Search messages that mention you
- Get a permanent link to a message

Nothing can be posted or modified. Timestamps use Slack's format (Unix epoch
as decimal string, e.g. "1609459200.000001"); pass them back exactly as given.
Failed calls are reported with one of the error kinds: InvalidArgument,
NotFound, PermissionDenied, RateLimited (wait before retrying) or
UpstreamError.
`, ws, who)
}

// ServeStdio runs the MCP server over stdin/stdout until ctx is cancelled.
// This is the standard transport used by local agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.serveStdio(ctx, os.Stdin, os.Stdout)
}

func (s *Server) serveStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	srv := mcpsrv.NewStdioServer(s.mcp)
	srv.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.InfoContext(ctx, "mcp server listening on stdio")
	if err := srv.Listen(ctx, in, out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mcp stdio server error: %w", err)
	}
	return nil
}

// Handler returns the HTTP handler of the Streamable HTTP transport.  The
// MCP endpoint is mounted at /mcp, and /healthz reports liveness.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	r.Handle("/mcp", mcpsrv.NewStreamableHTTPServer(s.mcp))
	return r
}

// ServeHTTP runs the MCP server as a Streamable HTTP server on addr until
// ctx is cancelled.  addr should be a host:port string such as
// "127.0.0.1:8484".
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	s.logger.InfoContext(ctx, "mcp server listening on http", "addr", addr, "endpoint", "/mcp")

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("mcp http server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "mcp server shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			return fmt.Errorf("mcp http server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, t Transport, addr string) error {
	switch t {
	case TransportStdio, "":
		return s.ServeStdio(ctx)
	case TransportHTTP:
		return s.ServeHTTP(ctx, addr)
	default:
		return fmt.Errorf("unknown transport %q: must be %q or %q", t, TransportStdio, TransportHTTP)
	}
}

// tools returns all MCP tools that this server exposes.
func (s *Server) tools() []mcpsrv.ServerTool {
	return []mcpsrv.ServerTool{
		s.toolReadChannelMessages(),
		s.toolReadThreadMessages(),
		s.toolGetChannelInfo(),
		s.toolGetUserInfo(),
		s.toolListMyChannels(),
		s.toolSearchMyConversations(),
		s.toolGetMessagePermalink(),
	}
}

// resultStructured wraps text in a successful CallToolResult and attaches
// the structured content v.
func resultStructured(text string, v any) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content:           []mcplib.Content{mcplib.NewTextContent(text)},
		StructuredContent: v,
	}
}
