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

// In this file: tool argument extraction and validation.

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/rusq/slackmcp/internal/apierr"
	"github.com/rusq/slackmcp/internal/slackts"
)

// Channel types accepted by list_my_channels.
const (
	typePublic  = "public_channel"
	typePrivate = "private_channel"
	typeMPIM    = "mpim"
	typeIM      = "im"

	defChannelTypes = typePublic + "," + typePrivate
)

var validChannelTypes = map[string]bool{
	typePublic:  true,
	typePrivate: true,
	typeMPIM:    true,
	typeIM:      true,
}

// argument bounds and defaults.
const (
	defLookbackHours = 24.0
	defMsgLimit      = 100
	maxMsgLimit      = 1000
	defSearchCount   = 20
	maxSearchCount   = 100
)

// requiredString returns the trimmed value of the required string argument
// name.  Missing, non-string or blank values are InvalidArgument.
func requiredString(op string, req mcplib.CallToolRequest, name string) (string, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return "", apierr.Invalid(op, "%s is required", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", apierr.Invalid(op, "%s must be a string, got %T", name, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apierr.Invalid(op, "%s must not be empty", name)
	}
	return s, nil
}

// optionalString returns the trimmed string argument name, or def if the
// argument is absent.
func optionalString(op string, req mcplib.CallToolRequest, name string, def string) (string, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", apierr.Invalid(op, "%s must be a string, got %T", name, v)
	}
	return strings.TrimSpace(s), nil
}

// timestampArg returns the required Slack timestamp argument name.  The value
// is validated but otherwise kept verbatim.
func timestampArg(op string, req mcplib.CallToolRequest, name string) (string, error) {
	ts, err := requiredString(op, req, name)
	if err != nil {
		return "", err
	}
	if !slackts.Valid(ts) {
		return "", apierr.Invalid(op, "%s must be a Slack timestamp like \"1699564800.123456\", got %q", name, ts)
	}
	return ts, nil
}

// numberArg returns the numeric argument name, or def if the argument is
// absent.  JSON numbers, integers and numeric strings are accepted.
func numberArg(op string, req mcplib.CallToolRequest, name string, def float64) (float64, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return def, nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, apierr.Invalid(op, "%s must be a number, got %q", name, n)
		}
	default:
		return 0, apierr.Invalid(op, "%s must be a number, got %T", name, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apierr.Invalid(op, "%s must be a finite number", name)
	}
	return f, nil
}

// clampedInt returns the integer argument name clamped to [lo, hi], or def
// if absent.  Out of range values are not an error.
func clampedInt(op string, req mcplib.CallToolRequest, name string, def, lo, hi int) (int, error) {
	f, err := numberArg(op, req, name, float64(def))
	if err != nil {
		return 0, err
	}
	return clamp(f, lo, hi), nil
}

func clamp(f float64, lo, hi int) int {
	switch {
	case f < float64(lo):
		return lo
	case f > float64(hi):
		return hi
	}
	return int(f)
}

// lookbackArg returns the lookback_hours argument.  It must be positive.
func lookbackArg(op string, req mcplib.CallToolRequest) (float64, error) {
	h, err := numberArg(op, req, "lookback_hours", defLookbackHours)
	if err != nil {
		return 0, err
	}
	if h <= 0 {
		return 0, apierr.Invalid(op, "lookback_hours must be positive, got %s", strconv.FormatFloat(h, 'f', -1, 64))
	}
	return h, nil
}

// parseChannelTypes splits, trims and validates the comma separated list of
// channel types.  Duplicates are removed, preserving the order.  An empty
// list results in the default types.
func parseChannelTypes(op string, s string) ([]string, error) {
	var (
		types []string
		seen  = make(map[string]bool)
	)
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		if !validChannelTypes[t] {
			return nil, apierr.Invalid(op, "unknown channel type %q, must be one of: %s", t, strings.Join([]string{typePublic, typePrivate, typeMPIM, typeIM}, ", "))
		}
		seen[t] = true
		types = append(types, t)
	}
	if len(types) == 0 {
		return parseChannelTypes(op, defChannelTypes)
	}
	return types, nil
}

// describe returns the short description of the argument value for logging.
func describe(v any) string {
	s := fmt.Sprint(v)
	if len(s) > 64 {
		return s[:64] + "…"
	}
	return s
}
