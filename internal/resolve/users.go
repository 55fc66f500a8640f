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

// Package resolve resolves Slack user IDs to human readable names.  All
// lookups are best effort: a failed lookup resolves to the ID itself.
package resolve

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rusq/slack"
	"golang.org/x/sync/errgroup"
)

// maxConcurrent is the maximum number of concurrent users.info calls per
// Prefetch.
const maxConcurrent = 4

// UserGetter is the subset of the Slack client used by Users.
type UserGetter interface {
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
}

// Users is a per-invocation user name memo.  It must not outlive the tool
// invocation that created it.  Zero value is not usable, use NewUsers.
type Users struct {
	cl UserGetter
	lg *slog.Logger

	mu   sync.RWMutex
	memo map[string]string
}

// NewUsers returns a new user name memo backed by cl.
func NewUsers(cl UserGetter, lg *slog.Logger) *Users {
	if lg == nil {
		lg = slog.Default()
	}
	return &Users{
		cl:   cl,
		lg:   lg,
		memo: make(map[string]string),
	}
}

// Prefetch resolves the names of the given user IDs, running at most
// maxConcurrent lookups at a time.  Duplicate, empty and already resolved IDs
// are skipped.  Lookup failures are logged and memoised as the raw ID, so that
// the same ID is not requested twice within the invocation.  It returns when
// all lookups are complete or ctx is cancelled.
func (u *Users) Prefetch(ctx context.Context, ids ...string) {
	pending := u.pending(ids)
	if len(pending) == 0 {
		return
	}
	var eg errgroup.Group
	eg.SetLimit(maxConcurrent)
	for _, id := range pending {
		eg.Go(func() error {
			u.store(id, u.fetch(ctx, id))
			return nil
		})
	}
	_ = eg.Wait()
}

// pending returns the unique IDs from ids that are not in the memo.
func (u *Users) pending(ids []string) []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := u.memo[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (u *Users) fetch(ctx context.Context, id string) string {
	user, err := u.cl.GetUserInfoContext(ctx, id)
	if err != nil {
		u.lg.DebugContext(ctx, "user lookup failed, using ID", "user_id", id, "error", err)
		return id
	}
	return Name(user)
}

func (u *Users) store(id, name string) {
	u.mu.Lock()
	u.memo[id] = name
	u.mu.Unlock()
}

// UserName returns the memoised name for the user ID without calling the API.
// If the ID was never resolved, it returns the ID.
func (u *Users) UserName(id string) string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if name, ok := u.memo[id]; ok {
		return name
	}
	return id
}

// Name returns the best available name of the user: display name, real name,
// username, and finally the user ID.
func Name(u *slack.User) string {
	if u == nil {
		return ""
	}
	return nvl(u.Profile.DisplayName, u.RealName, u.Profile.RealName, u.Name, u.ID)
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
