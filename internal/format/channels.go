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
)

const (
	iconPrivate = "🔒"
	iconPublic  = "🌐"
	iconIM      = "💬"
	iconMPIM    = "👥"
)

// Channels writes the list of channels, preserving the order.
func (md *Markdown) Channels(w io.Writer, cc []slack.Channel) error {
	e := ew{w: w}
	e.printf("# Your Channels\n")
	e.printf("Found %d channels you're a member of:\n\n", len(cc))
	for i := range cc {
		ch := &cc[i]
		e.printf("- %s **%s** (`%s`) - members: %s\n", icon(ch), nvl(md.channelName(ch), ch.ID), ch.ID, nvl(members(ch.NumMembers), NotSet))
	}
	return e.err
}

func icon(ch *slack.Channel) string {
	switch {
	case ch.IsIM:
		return iconIM
	case ch.IsMpIM:
		return iconMPIM
	case ch.IsPrivate:
		return iconPrivate
	}
	return iconPublic
}
