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

package resolve

import (
	"regexp"
	"strings"
)

var (
	// reUser matches user mentions: <@U123> and <@U123|label>.
	reUser = regexp.MustCompile(`<@([UW][A-Z0-9]+)(?:\|([^>]*))?>`)
	// reChannel matches channel references: <#C123> and <#C123|general>.
	reChannel = regexp.MustCompile(`<#([CGD][A-Z0-9]+)(?:\|([^>]*))?>`)
	// reLink matches links: <https://example.com> and <https://example.com|label>.
	reLink = regexp.MustCompile(`<((?:https?|mailto):[^|>]+)(?:\|([^>]*))?>`)
	// reSpecial matches special mentions, i.e. <!here> or <!subteam^S123|@team>.
	reSpecial = regexp.MustCompile(`<!([^|>]+)(?:\|([^>]*))?>`)
)

// Namer resolves a user ID into a name.
type Namer interface {
	UserName(id string) string
}

// Mentions returns the user IDs mentioned in text, in order of appearance.
// IDs are not deduplicated.
func Mentions(text string) []string {
	var ids []string
	for _, m := range reUser.FindAllStringSubmatch(text, -1) {
		ids = append(ids, m[1])
	}
	return ids
}

// Expand replaces Slack markup in the text with the readable form: user
// mentions become "@name", channel references become "#name", links with a
// label become "label (url)".  If the user name can not be resolved, the label
// of the mention is used, if present, otherwise the user ID.
func Expand(text string, n Namer) string {
	if !strings.ContainsRune(text, '<') {
		return text
	}
	text = reUser.ReplaceAllStringFunc(text, func(s string) string {
		m := reUser.FindStringSubmatch(s)
		id, label := m[1], m[2]
		name := id
		if n != nil {
			name = n.UserName(id)
		}
		if name == id && label != "" {
			name = label
		}
		return "@" + name
	})
	text = reChannel.ReplaceAllStringFunc(text, func(s string) string {
		m := reChannel.FindStringSubmatch(s)
		if m[2] != "" {
			return "#" + m[2]
		}
		return "#" + m[1]
	})
	text = reLink.ReplaceAllStringFunc(text, func(s string) string {
		m := reLink.FindStringSubmatch(s)
		if m[2] == "" || m[2] == m[1] {
			return m[1]
		}
		return m[2] + " (" + m[1] + ")"
	})
	text = reSpecial.ReplaceAllStringFunc(text, func(s string) string {
		m := reSpecial.FindStringSubmatch(s)
		if m[2] != "" {
			return m[2]
		}
		if cmd, _, ok := strings.Cut(m[1], "^"); ok {
			return "@" + cmd
		}
		return "@" + m[1]
	})
	return text
}
