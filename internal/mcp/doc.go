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

// Package mcp implements a Model Context Protocol (MCP) server that gives AI
// agents read-only access to a Slack workspace through the Slack Web API.
//
// The server never posts or modifies anything in the workspace.  Every tool
// validates its arguments before calling the API, and reports failures as
// tool results with IsError set, classified as InvalidArgument, NotFound,
// PermissionDenied, RateLimited or UpstreamError.
//
// Transport: the server supports two transports selectable at runtime:
//   - stdio  – standard MCP stdio transport (default); suitable for local
//     agent integration (e.g. Claude Desktop, VS Code Copilot).
//   - http   – Streamable HTTP transport, mounted at /mcp; suitable for
//     remote agents or when multiple concurrent clients are needed.
package mcp
