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

// Package apierr defines the error taxonomy of the tool handlers and maps
// Slack client errors onto it.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rusq/slack"
)

//go:generate stringer -type=Kind -trimprefix=Kind

// Kind is the class of a tool failure.
type Kind uint8

const (
	// KindUpstream is any remote failure that is not classified otherwise.
	KindUpstream Kind = iota
	// KindInvalidArgument is a malformed or out-of-bounds input, detected
	// before any network call.
	KindInvalidArgument
	// KindNotFound means that the requested id does not exist.
	KindNotFound
	// KindPermissionDenied means that the id is valid, but the token lacks
	// the scope or the membership to access it.
	KindPermissionDenied
	// KindRateLimited is the remote API throttling response.
	KindRateLimited
)

// Label returns the name of the kind as presented to the assistant.
func (k Kind) Label() string {
	if k == KindUpstream {
		return "UpstreamError"
	}
	return k.String()
}

// Error is a classified tool error.
type Error struct {
	Kind Kind
	// Op is the tool or API operation that failed.
	Op string
	// Code is the remote error code, verbatim, if there is one.
	Code string
	// RetryAfter is set for KindRateLimited, if Slack provided the hint.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	switch {
	case e.Err != nil:
		sb.WriteString(e.Err.Error())
	case e.Code != "":
		sb.WriteString(e.Code)
	default:
		sb.WriteString(e.Kind.Label())
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows matching against the kind sentinels, i.e.
//
//	errors.Is(err, apierr.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Code == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrRateLimited      = &Error{Kind: KindRateLimited}
	ErrUpstream         = &Error{Kind: KindUpstream}
)

// Invalid returns an InvalidArgument error for operation op.
func Invalid(op string, format string, a ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: fmt.Errorf(format, a...)}
}

// KindOf returns the kind of err.  Errors that were not classified are
// reported as KindUpstream.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Slack error codes that identify a missing object.
var notFoundCodes = map[string]bool{
	"channel_not_found": true,
	"user_not_found":    true,
	"users_not_found":   true,
	"thread_not_found":  true,
	"message_not_found": true,
	"not_found":         true,
}

// Slack error codes that identify a valid object the token can't access.
var deniedCodes = map[string]bool{
	"not_in_channel":           true,
	"missing_scope":            true,
	"access_denied":            true,
	"no_permission":            true,
	"not_allowed_token_type":   true,
	"restricted_action":        true,
	"team_access_not_granted":  true,
	"enterprise_is_restricted": true,
	"ekm_access_denied":        true,
	"invalid_auth":             true,
	"not_authed":               true,
	"account_inactive":         true,
	"token_revoked":            true,
	"token_expired":            true,
}

// Classify maps the error returned by the Slack client onto the taxonomy.
// Errors that are already classified are returned unchanged.  Classify
// returns nil if err is nil.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}

	var (
		rle *slack.RateLimitedError
		ser slack.SlackErrorResponse
		sce slack.StatusCodeError
	)
	switch {
	case errors.As(err, &rle):
		return &Error{Kind: KindRateLimited, Op: op, Code: "ratelimited", RetryAfter: rle.RetryAfter, Err: err}
	case errors.As(err, &ser):
		return &Error{Kind: codeKind(ser.Err), Op: op, Code: ser.Err, Err: err}
	case errors.As(err, &sce):
		k := KindUpstream
		switch sce.Code {
		case http.StatusTooManyRequests:
			k = KindRateLimited
		case http.StatusNotFound:
			k = KindNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			k = KindPermissionDenied
		}
		return &Error{Kind: k, Op: op, Code: fmt.Sprintf("http_%d", sce.Code), Err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindUpstream, Op: op, Code: "canceled", Err: err}
	}
	return &Error{Kind: KindUpstream, Op: op, Err: err}
}

func codeKind(code string) Kind {
	code = strings.ToLower(code)
	switch {
	case code == "ratelimited":
		return KindRateLimited
	case notFoundCodes[code]:
		return KindNotFound
	case deniedCodes[code]:
		return KindPermissionDenied
	}
	return KindUpstream
}

// ChannelAccessError is returned when a channel can not be read: it does not
// exist, it is private and the token is not a member, or access is otherwise
// denied.  The Slack code is preserved in the wrapped *Error.
type ChannelAccessError struct {
	ChannelID string
	Err       error
}

func (e *ChannelAccessError) Error() string {
	code := ""
	var ae *Error
	if errors.As(e.Err, &ae) && ae.Code != "" {
		code = ae.Code
	} else if e.Err != nil {
		code = e.Err.Error()
	}
	return fmt.Sprintf("cannot access channel %s: %s", e.ChannelID, code)
}

func (e *ChannelAccessError) Unwrap() error {
	return e.Err
}

// ChannelAccess wraps the classified err into a ChannelAccessError, if it is
// a NotFound or PermissionDenied error.  Other errors are returned unchanged.
func ChannelAccess(channelID string, err error) error {
	switch KindOf(err) {
	case KindNotFound, KindPermissionDenied:
		return &ChannelAccessError{ChannelID: channelID, Err: err}
	}
	return err
}
