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

// Package slackts contains Slack timestamp helpers.
//
// Slack timestamps ("ts") are decimal strings, i.e. "1699564800.123456", and
// they double as message identifiers.  They are never converted to float:
// identity comparisons and URL construction operate on the string as given.
package slackts

// In this file: slack timestamp parsing and formatting functions.

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DisplayLayout is the layout of human-readable message times.
const DisplayLayout = "2006-01-02 15:04:05 UTC"

var ErrInvalid = errors.New("invalid slack timestamp")

// Valid reports whether ts has the form "digits" or "digits.digits".
func Valid(ts string) bool {
	hi, lo, found := strings.Cut(ts, ".")
	if !isDigits(hi) {
		return false
	}
	return !found || isDigits(lo)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Parse converts the slack timestamp to time.Time in UTC.  The fractional
// part is interpreted as microseconds.
func Parse(ts string) (time.Time, error) {
	if !Valid(ts) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalid, ts)
	}
	strSec, strFrac, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(strSec, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %s", ErrInvalid, ts, err)
	}
	var nsec int64
	if strFrac != "" {
		// pad or cut to nanosecond precision
		if len(strFrac) > 9 {
			strFrac = strFrac[:9]
		}
		strFrac += strings.Repeat("0", 9-len(strFrac))
		nsec, err = strconv.ParseInt(strFrac, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %s", ErrInvalid, ts, err)
		}
	}
	return time.Unix(sec, nsec).UTC(), nil
}

// Format converts t to the slack timestamp with microsecond precision.
func Format(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/1000)
}

// Display returns the human-readable UTC time of ts.  If ts can't be
// parsed, it is returned as is.
func Display(ts string) string {
	t, err := Parse(ts)
	if err != nil {
		return ts
	}
	return t.Format(DisplayLayout)
}

// Oldest returns the slack timestamp of the moment that is hours before now.
// It is used as the lower bound of the history request.
func Oldest(now time.Time, hours float64) string {
	d := time.Duration(math.Round(hours * float64(time.Hour)))
	return Format(now.Add(-d))
}

// LinkID returns the message identifier used in the permalink: the
// timestamp with the decimal point removed, prefixed with "p".
//
//	"1699564800.123456" -> "p1699564800123456"
func LinkID(ts string) string {
	return "p" + strings.Replace(ts, ".", "", 1)
}

// Permalink constructs the message link in the same format as Slack does:
//
//	https://example.slack.com/archives/C123/p1699564800123456
func Permalink(base, channelID, ts string) string {
	return strings.TrimRight(base, "/") + "/archives/" + channelID + "/" + LinkID(ts)
}

// ReplyPermalink constructs the link for a thread reply, that includes the
// thread parent reference.  If ts is the thread parent, it returns the same
// value as Permalink.
func ReplyPermalink(base, channelID, ts, threadTS string) string {
	link := Permalink(base, channelID, ts)
	if threadTS == "" || threadTS == ts {
		return link
	}
	return link + "?thread_ts=" + threadTS + "&cid=" + channelID
}
