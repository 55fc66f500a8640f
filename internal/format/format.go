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

// Package format renders Slack API responses as Markdown text for the
// assistant.  Functions in this package do not call the API: names must be
// resolved before rendering and are supplied via a [resolve.Namer].
package format

import (
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/enescakir/emoji"
	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/resolve"
)

// NotSet is the value rendered in place of an absent field.
const NotSet = "(not set)"

// separator ends each message block.
const separator = "\n---\n"

// noiseSubtypes are the message subtypes that are not shown in the channel
// history.
var noiseSubtypes = map[string]struct{}{
	"channel_join":  {},
	"channel_leave": {},
	"bot_message":   {},
}

// Markdown renders Slack entities as Markdown.
type Markdown struct {
	base  string // workspace base URL for constructed links
	names resolve.Namer
	now   func() time.Time
}

// Option is the Markdown option.
type Option func(*Markdown)

// WithNow sets the clock used for relative times.
func WithNow(fn func() time.Time) Option {
	return func(md *Markdown) {
		if fn != nil {
			md.now = fn
		}
	}
}

// New returns a new Markdown renderer.  base is the workspace base URL, i.e.
// "https://example.slack.com".  If names is nil, user IDs are rendered as is.
func New(base string, names resolve.Namer, opts ...Option) *Markdown {
	md := &Markdown{
		base:  strings.TrimRight(base, "/"),
		names: names,
		now:   time.Now,
	}
	if md.names == nil {
		md.names = idNamer{}
	}
	for _, opt := range opts {
		opt(md)
	}
	return md
}

type idNamer struct{}

func (idNamer) UserName(id string) string { return id }

// IsNoise reports whether the message is a join/leave notification or a bot
// message.
func IsNoise(m *slack.Message) bool {
	_, ok := noiseSubtypes[m.SubType]
	return ok
}

// Authors returns user IDs of message authors and users mentioned in the
// messages, in order of appearance, to be resolved before rendering.
func Authors(msgs []slack.Message) []string {
	var ids []string
	for i := range msgs {
		if msgs[i].User != "" {
			ids = append(ids, msgs[i].User)
		}
		ids = append(ids, resolve.Mentions(msgs[i].Text)...)
	}
	return ids
}

// text returns the readable message text.
func (md *Markdown) text(s string) string {
	return html.UnescapeString(resolve.Expand(s, md.names))
}

// user returns the rendered author of the message.
func (md *Markdown) user(id, username string) string {
	if id == "" {
		return nvl(username, "unknown")
	}
	if name := md.names.UserName(id); name != id {
		return name + " (" + id + ")"
	}
	return id
}

// sender returns the rendered author of the message.
func (md *Markdown) sender(m *slack.Message) string {
	if m.User == "" && m.BotProfile != nil {
		return md.user("", m.BotProfile.Name)
	}
	return md.user(m.User, m.Username)
}

// Reactions renders the message reactions, i.e. "👍 (2), :partyparrot: (1)".
// Reactions that are not standard emoji are rendered as :name:.
func Reactions(rr []slack.ItemReaction) string {
	parts := make([]string, 0, len(rr))
	for _, r := range rr {
		parts = append(parts, fmt.Sprintf("%s (%d)", glyph(r.Name), r.Count))
	}
	return strings.Join(parts, ", ")
}

// glyph returns the emoji for the reaction name, or ":name:" if it is not
// known.  Skin tone modifiers are dropped.
func glyph(name string) string {
	base, _, _ := strings.Cut(name, "::")
	code := ":" + base + ":"
	return emoji.Parse(code)
}

func yesno(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func nvl(s string, ss ...string) string {
	if s != "" {
		return s
	}
	for _, alt := range ss {
		if alt != "" {
			return alt
		}
	}
	return ""
}

// ew is the error-sticky writer.
type ew struct {
	w   io.Writer
	err error
}

func (e *ew) printf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

func (e *ew) field(name, value string) {
	e.printf("**%s:** %s\n", name, value)
}
