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

package format

import (
	"io"
	"strconv"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/slackts"
)

// History describes the channel history to render.
type History struct {
	ChannelID     string
	ChannelName   string
	LookbackHours float64
	Messages      []slack.Message // noise must be removed by the caller
	HasMore       bool
}

// History writes the channel messages in the order they are given.
func (md *Markdown) History(w io.Writer, h History) error {
	e := ew{w: w}
	e.printf("# Messages from %s\n", nvl(channelTitle(h.ChannelName), h.ChannelID))
	e.printf("Found %d messages from the last %s hours\n", len(h.Messages), strconv.FormatFloat(h.LookbackHours, 'f', -1, 64))
	if h.HasMore {
		e.printf("_There are more messages in this time window, increase limit or reduce lookback_hours to see them._\n")
	}
	e.printf("\n")
	for i := range h.Messages {
		m := &h.Messages[i]
		md.message(&e, m, slackts.Permalink(md.base, h.ChannelID, m.Timestamp))
		if isParent(m) {
			e.field("Thread", "Yes (replies: "+strconv.Itoa(m.ReplyCount)+")")
		}
		md.body(&e, m)
	}
	return e.err
}

func channelTitle(name string) string {
	if name == "" {
		return ""
	}
	return "#" + name
}

// isParent reports whether the message starts a thread.
func isParent(m *slack.Message) bool {
	return m.ThreadTimestamp != "" && m.ThreadTimestamp == m.Timestamp
}

// message writes the message header fields.
func (md *Markdown) message(e *ew, m *slack.Message, link string) {
	e.field("Time", slackts.Display(m.Timestamp))
	e.field("User", md.sender(m))
	e.field("Link", link)
}

// body writes the message text, reactions and the separator.
func (md *Markdown) body(e *ew, m *slack.Message) {
	e.printf("**Message:**\n%s\n", md.text(m.Text))
	if len(m.Reactions) > 0 {
		e.field("Reactions", Reactions(m.Reactions))
	}
	e.printf(separator)
}

// Thread describes the thread to render.
type Thread struct {
	ChannelID string
	ThreadTS  string
	Messages  []slack.Message // parent first, then replies
}

// Replies returns the number of replies in the thread.
func (t Thread) Replies() int {
	if len(t.Messages) == 0 {
		return 0
	}
	return len(t.Messages) - 1
}

// Thread writes the thread parent followed by replies.
func (md *Markdown) Thread(w io.Writer, t Thread) error {
	e := ew{w: w}
	e.printf("# Thread Messages\n")
	e.field("Link", slackts.Permalink(md.base, t.ChannelID, t.ThreadTS))
	e.field("Total messages", strconv.Itoa(len(t.Messages)))
	e.field("Replies", strconv.Itoa(t.Replies()))
	e.printf("\n")
	for i := range t.Messages {
		m := &t.Messages[i]
		if i == 0 {
			e.printf("**[PARENT]**\n")
		} else {
			e.printf("**[REPLY %d]**\n", i)
		}
		md.message(&e, m, slackts.ReplyPermalink(md.base, t.ChannelID, m.Timestamp, t.ThreadTS))
		md.body(&e, m)
	}
	if t.Replies() == 0 {
		e.printf("\nNo replies yet.\n")
	}
	return e.err
}

// ThreadNotFound writes the message for a missing thread.
func (md *Markdown) ThreadNotFound(w io.Writer, channelID, threadTS string) error {
	e := ew{w: w}
	e.printf("# Thread Not Found\n\n")
	e.printf("No thread with parent timestamp `%s` exists in channel `%s`. The parent message may have been deleted, or the timestamp does not point to a message.\n", threadTS, channelID)
	return e.err
}
