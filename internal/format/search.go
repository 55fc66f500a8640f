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

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/slackts"
)

// SearchAuthors returns user IDs of the search hits that have no username.
func SearchAuthors(mm []slack.SearchMessage) []string {
	var ids []string
	for _, m := range mm {
		if m.Username == "" && m.User != "" {
			ids = append(ids, m.User)
		}
	}
	return ids
}

// Search writes search results in the order of ranking.
func (md *Markdown) Search(w io.Writer, query string, res *slack.SearchMessages) error {
	e := ew{w: w}
	var matches []slack.SearchMessage
	total := 0
	if res != nil {
		matches = res.Matches
		total = res.Total
	}
	e.printf("# Search Results\n")
	e.printf("Query: '%s' (including mentions of you)\n", query)
	e.printf("Found %d total matches, showing %d results:\n\n", total, len(matches))
	for _, m := range matches {
		e.field("Channel", nvl(channelTitle(m.Channel.Name), m.Channel.ID, NotSet))
		e.field("User", md.searchUser(&m))
		e.field("Time", slackts.Display(m.Timestamp))
		link := m.Permalink
		if link == "" && m.Channel.ID != "" {
			link = slackts.Permalink(md.base, m.Channel.ID, m.Timestamp)
		}
		e.field("Link", nvl(link, NotSet))
		e.printf("**Message:**\n%s\n", md.text(m.Text))
		e.printf(separator)
	}
	return e.err
}

func (md *Markdown) searchUser(m *slack.SearchMessage) string {
	if m.Username != "" {
		if m.User != "" {
			return m.Username + " (" + m.User + ")"
		}
		return m.Username
	}
	return md.user(m.User, "")
}

// Permalink writes the message permalink.
func (md *Markdown) Permalink(w io.Writer, link string) error {
	e := ew{w: w}
	e.printf("# Message Permalink\n\n")
	e.field("Link", link)
	return e.err
}
