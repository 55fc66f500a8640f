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

package client

import (
	"context"
	"runtime/trace"

	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/network"
)

// Throttled paces the calls to the wrapped client according to the Slack API
// tier of each method.  It does not retry: a rate limit error from the API
// is returned to the caller as is.
//
// Zero value is not usable, must be initialised with [NewThrottled].
type Throttled struct {
	cl  Slack
	lim *network.Limiters
}

var _ Slack = (*Throttled)(nil)

// NewThrottled wraps the client cl with the tier limiters configured from l.
func NewThrottled(cl Slack, l network.Limits) *Throttled {
	return &Throttled{
		cl:  cl,
		lim: network.NewLimiters(l),
	}
}

// wait waits for the tier limiter, and starts the trace region for the API
// method.  The caller must end the region.
func (t *Throttled) wait(ctx context.Context, tier network.Tier, method string) (*trace.Region, error) {
	if err := t.lim.Wait(ctx, tier); err != nil {
		return nil, err
	}
	return trace.StartRegion(ctx, method), nil
}

func (t *Throttled) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	r, err := t.wait(ctx, network.NoTier, "auth.test")
	if err != nil {
		return nil, err
	}
	defer r.End()
	return t.cl.AuthTestContext(ctx)
}

func (t *Throttled) GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	r, err := t.wait(ctx, network.Tier3, "conversations.history")
	if err != nil {
		return nil, err
	}
	defer r.End()
	return t.cl.GetConversationHistoryContext(ctx, params)
}

func (t *Throttled) GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error) {
	r, err := t.wait(ctx, network.Tier3, "conversations.info")
	if err != nil {
		return nil, err
	}
	defer r.End()
	return t.cl.GetConversationInfoContext(ctx, input)
}

func (t *Throttled) GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	r, err := t.wait(ctx, network.Tier3, "conversations.replies")
	if err != nil {
		return nil, false, "", err
	}
	defer r.End()
	return t.cl.GetConversationRepliesContext(ctx, params)
}

func (t *Throttled) GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	r, err := t.wait(ctx, network.Tier2, "conversations.list")
	if err != nil {
		return nil, "", err
	}
	defer r.End()
	return t.cl.GetConversationsContext(ctx, params)
}

func (t *Throttled) GetPermalinkContext(ctx context.Context, params *slack.PermalinkParameters) (string, error) {
	r, err := t.wait(ctx, network.Tier4, "chat.getPermalink")
	if err != nil {
		return "", err
	}
	defer r.End()
	return t.cl.GetPermalinkContext(ctx, params)
}

func (t *Throttled) GetUserInfoContext(ctx context.Context, user string) (*slack.User, error) {
	r, err := t.wait(ctx, network.Tier4, "users.info")
	if err != nil {
		return nil, err
	}
	defer r.End()
	return t.cl.GetUserInfoContext(ctx, user)
}

func (t *Throttled) SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	r, err := t.wait(ctx, network.Tier2, "search.messages")
	if err != nil {
		return nil, err
	}
	defer r.End()
	return t.cl.SearchMessagesContext(ctx, query, params)
}
