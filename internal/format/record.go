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
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/enescakir/emoji"
	"github.com/rusq/slack"
)

// Field is a named field of the Record.
type Field struct {
	Name  string
	Value string
}

// Record is an ordered set of named fields.  Absent values are reported as
// NotSet by Get and rendered as such, so a missing field can't be mistaken for
// a failed lookup.
type Record struct {
	Title  string
	fields []Field
}

// Set sets the value of the named field, appending the field if it does not
// exist.  Empty value marks the field as not set.
func (r *Record) Set(name, value string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field, or NotSet.
func (r *Record) Get(name string) string {
	for _, f := range r.fields {
		if f.Name == name {
			return nvl(f.Value, NotSet)
		}
	}
	return NotSet
}

// Fields returns the fields of the record in order, with absent values
// replaced by NotSet.
func (r *Record) Fields() []Field {
	ff := make([]Field, len(r.fields))
	for i, f := range r.fields {
		ff[i] = Field{Name: f.Name, Value: nvl(f.Value, NotSet)}
	}
	return ff
}

// Map returns the fields as a map, suitable for structured output.
func (r *Record) Map() map[string]string {
	m := make(map[string]string, len(r.fields))
	for _, f := range r.Fields() {
		m[f.Name] = f.Value
	}
	return m
}

// Write writes the record as Markdown to w.
func (r *Record) Write(w io.Writer) error {
	e := ew{w: w}
	e.printf("# %s\n\n", r.Title)
	for _, f := range r.Fields() {
		e.field(f.Name, f.Value)
	}
	return e.err
}

// String returns the record as Markdown.
func (r *Record) String() string {
	var sb strings.Builder
	_ = r.Write(&sb)
	return sb.String()
}

// ChannelRecord returns the channel information record.
func (md *Markdown) ChannelRecord(ch *slack.Channel) *Record {
	r := &Record{Title: "Channel Information"}
	r.Set("Name", md.channelName(ch))
	r.Set("ID", ch.ID)
	r.Set("Created", md.created(int64(ch.Created)))
	r.Set("Members", members(ch.NumMembers))
	r.Set("Private", yesno(ch.IsPrivate))
	r.Set("Archived", yesno(ch.IsArchived))
	r.Set("Topic", ch.Topic.Value)
	r.Set("Purpose", ch.Purpose.Value)
	return r
}

// channelName returns the name of the channel as shown to the user: #name for
// channels, @user for IMs.
func (md *Markdown) channelName(ch *slack.Channel) string {
	switch {
	case ch.IsIM:
		if ch.User == "" {
			return ""
		}
		return "@" + md.names.UserName(ch.User)
	case ch.Name != "":
		return "#" + ch.Name
	}
	return ""
}

func (md *Markdown) created(unix int64) string {
	if unix <= 0 {
		return ""
	}
	t := time.Unix(unix, 0).UTC()
	return t.Format("2006-01-02") + " (" + humanize.RelTime(t, md.now(), "ago", "from now") + ")"
}

func members(n int) string {
	if n <= 0 {
		return ""
	}
	return humanize.Comma(int64(n))
}

// UserRecord returns the user information record.
func (md *Markdown) UserRecord(u *slack.User) *Record {
	r := &Record{Title: "User Information"}
	r.Set("Real Name", nvl(u.RealName, u.Profile.RealName))
	r.Set("Display Name", u.Profile.DisplayName)
	if u.Name != "" {
		r.Set("Username", "@"+u.Name)
	} else {
		r.Set("Username", "")
	}
	r.Set("ID", u.ID)
	r.Set("Email", u.Profile.Email)
	r.Set("Title", u.Profile.Title)
	r.Set("Status", status(u.Profile.StatusEmoji, u.Profile.StatusText))
	r.Set("Timezone", nvl(u.TZLabel, u.TZ))
	r.Set("Admin", yesno(u.IsAdmin))
	r.Set("Owner", yesno(u.IsOwner))
	r.Set("Bot", yesno(u.IsBot))
	r.Set("Deleted", yesno(u.Deleted))
	return r
}

func status(emojiCode, text string) string {
	var parts []string
	if emojiCode != "" {
		parts = append(parts, emoji.Parse(emojiCode))
	}
	if text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
