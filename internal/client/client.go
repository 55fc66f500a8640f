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

// Package client provides the Slack API client used by the tool handlers.
package client

import (
	"context"
	"net/http"

	"github.com/rusq/slack"
)

//go:generate mockgen -destination mock_client/mock_client.go . Slack

// Slack is an interface that defines the methods that a Slack client should
// provide.  All methods are read-only.
type Slack interface {
	AuthTestContext(ctx context.Context) (response *slack.AuthTestResponse, err error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) (msgs []slack.Message, hasMore bool, nextCursor string, err error)
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) (channels []slack.Channel, nextCursor string, err error)
	GetPermalinkContext(ctx context.Context, params *slack.PermalinkParameters) (string, error)
	GetUserInfoContext(ctx context.Context, user string) (*slack.User, error)
	SearchMessagesContext(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error)
}

var _ Slack = (*Client)(nil)

// Client wraps *slack.Client.  It caches the auth.test response captured on
// initialisation, which is immutable for the lifetime of the token.
type Client struct {
	*slack.Client // always set; promotes all Slack API methods
	wi            *slack.AuthTestResponse
}

type options struct {
	httpClient *http.Client
	apiURL     string
}

type Option func(*options)

// WithHTTPClient sets the HTTP client used to talk to Slack API.
func WithHTTPClient(cl *http.Client) Option {
	return func(o *options) {
		if cl != nil {
			o.httpClient = cl
		}
	}
}

// WithAPIURL overrides the Slack API URL, i.e. "https://slack.com/api/".
func WithAPIURL(u string) Option {
	return func(o *options) {
		o.apiURL = u
	}
}

// New creates a new Client instance and checks the token with auth.test.
// An invalid token is an error.
func New(ctx context.Context, token string, opts ...Option) (*Client, error) {
	opt := options{
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(&opt)
	}
	sopts := []slack.Option{slack.OptionHTTPClient(opt.httpClient)}
	if opt.apiURL != "" {
		sopts = append(sopts, slack.OptionAPIURL(opt.apiURL))
	}
	scl := slack.New(token, sopts...)
	wi, err := scl.AuthTestContext(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{
		Client: scl,
		wi:     wi,
	}, nil
}

// AuthTestContext returns the cached workspace information that was captured
// on initialisation.  If the cache is empty it calls the API.
func (c *Client) AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error) {
	if c.wi == nil {
		wi, err := c.Client.AuthTestContext(ctx)
		if err != nil {
			return nil, err
		}
		c.wi = wi
	}
	return c.wi, nil
}

// Identity is the authenticated identity, as reported by auth.test.
type Identity struct {
	UserID       string
	User         string
	TeamID       string
	Team         string
	WorkspaceURL string
	IsBot        bool
}

// Identity returns the identity of the token owner.  It is empty if auth.test
// was never called.
func (c *Client) Identity() Identity {
	if c.wi == nil {
		return Identity{}
	}
	return Identity{
		UserID:       c.wi.UserID,
		User:         c.wi.User,
		TeamID:       c.wi.TeamID,
		Team:         c.wi.Team,
		WorkspaceURL: c.wi.URL,
		IsBot:        c.wi.BotID != "",
	}
}
