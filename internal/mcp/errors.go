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

// In this file: error results and the tool invocation middleware.

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"

	"github.com/rusq/slackmcp/internal/apierr"
)

// errorInfo is the structured content of the error result.
type errorInfo struct {
	Kind              string `json:"kind"`
	Code              string `json:"code,omitempty"`
	ChannelID         string `json:"channel_id,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

type errorResult struct {
	Error errorInfo `json:"error"`
}

// resultErr wraps an error in a CallToolResult with IsError=true.  The text
// is "<Kind>: <message>", and the structured content carries the kind, the
// Slack error code and the retry hint.
func resultErr(err error) *mcplib.CallToolResult {
	kind := apierr.KindOf(err)
	info := errorInfo{Kind: kind.Label()}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		info.Code = ae.Code
		if ae.RetryAfter > 0 {
			info.RetryAfterSeconds = int(math.Ceil(ae.RetryAfter.Seconds()))
		}
	}
	var cae *apierr.ChannelAccessError
	if errors.As(err, &cae) {
		info.ChannelID = cae.ChannelID
	}
	msg := kind.Label() + ": " + err.Error()
	if info.RetryAfterSeconds > 0 {
		msg += " (retry after " + (time.Duration(info.RetryAfterSeconds) * time.Second).String() + ")"
	}
	return &mcplib.CallToolResult{
		Content:           []mcplib.Content{mcplib.NewTextContent(msg)},
		StructuredContent: errorResult{Error: info},
		IsError:           true,
	}
}

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the request id of the tool invocation, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// logMiddleware assigns a request id to each tool invocation and logs the
// invocation with its outcome.
func (s *Server) logMiddleware(next mcpsrv.ToolHandlerFunc) mcpsrv.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		id := uuid.NewString()
		ctx = context.WithValue(ctx, requestIDKey, id)
		lg := s.logger.With("request_id", id, "tool", req.Params.Name)
		if lg.Enabled(ctx, slog.LevelDebug) {
			attrs := make([]any, 0, len(req.GetArguments()))
			for k, v := range req.GetArguments() {
				attrs = append(attrs, slog.String(k, describe(v)))
			}
			lg.DebugContext(ctx, "tool call", slog.Group("args", attrs...))
		}

		start := time.Now()
		res, err := next(ctx, req)
		took := time.Since(start)
		switch {
		case err != nil:
			lg.ErrorContext(ctx, "tool failed", "took", took, "error", err)
		case res != nil && res.IsError:
			lg.WarnContext(ctx, "tool returned error", "took", took, "kind", errorKind(res))
		default:
			lg.InfoContext(ctx, "tool call complete", "took", took)
		}
		return res, err
	}
}

func errorKind(res *mcplib.CallToolResult) string {
	if er, ok := res.StructuredContent.(errorResult); ok {
		return er.Error.Kind
	}
	return ""
}
