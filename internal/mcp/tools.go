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

package mcp

// In this file: MCP tool definitions and handler implementations.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpsrv "github.com/mark3labs/mcp-go/server"
	"github.com/rusq/slack"

	"github.com/rusq/slackmcp/internal/apierr"
	"github.com/rusq/slackmcp/internal/format"
	"github.com/rusq/slackmcp/internal/resolve"
	"github.com/rusq/slackmcp/internal/slackts"
)

const (
	opReadChannel = "read_channel_messages"
	opReadThread  = "read_thread_messages"
	opChannelInfo = "get_channel_info"
	opUserInfo    = "get_user_info"
	opListMine    = "list_my_channels"
	opSearchMine  = "search_my_conversations"
	opPermalink   = "get_message_permalink"
)

// renderer returns the Markdown renderer with a fresh user name memo, that
// lives for one tool invocation.
func (s *Server) renderer(ctx context.Context) (*format.Markdown, *resolve.Users) {
	users := resolve.NewUsers(s.cl, s.log(ctx))
	return format.New(s.base, users, format.WithNow(s.now)), users
}

// log returns the logger annotated with the request id of the invocation.
func (s *Server) log(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return s.logger.With("request_id", id)
	}
	return s.logger
}

// channelErr classifies the error of a channel operation.
func channelErr(op, channelID string, err error) error {
	return apierr.ChannelAccess(channelID, apierr.Classify(op, err))
}

// cursorLoop returns the error for a repeated pagination cursor.
func cursorLoop(op, cursor string) error {
	return &apierr.Error{Kind: apierr.KindUpstream, Op: op, Code: "cursor_loop", Err: fmt.Errorf("pagination cursor %q repeated", cursor)}
}

// ─── read_channel_messages ────────────────────────────────────────────────────

func (s *Server) toolReadChannelMessages() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opReadChannel,
		mcplib.WithDescription(`Read recent messages from a Slack channel.

Returns messages posted within the lookback window, newest first, with the
author, time, text, thread reply count, reactions and a permalink for each
message. Join/leave notifications and bot messages are skipped.`),
		mcplib.WithString("channel_id",
			mcplib.Description("Slack channel ID, e.g. C01234567."),
			mcplib.Required(),
		),
		mcplib.WithNumber("lookback_hours",
			mcplib.Description("How many hours back to read. Must be positive, fractions are allowed. Default: 24."),
			mcplib.DefaultNumber(defLookbackHours),
		),
		mcplib.WithNumber("limit",
			mcplib.Description("Maximum number of messages to return, 1 to 1000. Default: 100."),
			mcplib.DefaultNumber(defMsgLimit),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleReadChannelMessages}
}

// historyResult is the structured content of read_channel_messages.
type historyResult struct {
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name,omitempty"`
	Oldest      string `json:"oldest"`
	Limit       int    `json:"limit"`
	Count       int    `json:"count"`
	HasMore     bool   `json:"has_more"`
}

func (s *Server) handleReadChannelMessages(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opReadChannel
	channelID, err := requiredString(op, req, "channel_id")
	if err != nil {
		return resultErr(err), nil
	}
	hours, err := lookbackArg(op, req)
	if err != nil {
		return resultErr(err), nil
	}
	limit, err := clampedInt(op, req, "limit", defMsgLimit, 1, maxMsgLimit)
	if err != nil {
		return resultErr(err), nil
	}

	info, err := s.cl.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return resultErr(channelErr(op, channelID, err)), nil
	}

	oldest := slackts.Oldest(s.now(), hours)
	resp, err := s.cl.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Oldest:    oldest,
		Limit:     limit,
		Inclusive: false,
	})
	if err != nil {
		return resultErr(channelErr(op, channelID, err)), nil
	}

	msgs := make([]slack.Message, 0, len(resp.Messages))
	for i := range resp.Messages {
		if !format.IsNoise(&resp.Messages[i]) {
			msgs = append(msgs, resp.Messages[i])
		}
	}

	md, users := s.renderer(ctx)
	users.Prefetch(ctx, format.Authors(msgs)...)

	var sb strings.Builder
	if err := md.History(&sb, format.History{
		ChannelID:     channelID,
		ChannelName:   info.Name,
		LookbackHours: hours,
		Messages:      msgs,
		HasMore:       resp.HasMore,
	}); err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	return resultStructured(sb.String(), historyResult{
		ChannelID:   channelID,
		ChannelName: info.Name,
		Oldest:      oldest,
		Limit:       limit,
		Count:       len(msgs),
		HasMore:     resp.HasMore,
	}), nil
}

// ─── read_thread_messages ─────────────────────────────────────────────────────

func (s *Server) toolReadThreadMessages() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opReadThread,
		mcplib.WithDescription(`Read all messages of a thread: the parent message followed by the replies
in chronological order.

If the thread does not exist (the parent was deleted, or thread_ts does not
point to a thread parent), the result says so explicitly and the structured
content has thread_found=false. A thread without replies has
thread_found=true and reply_count=0.`),
		mcplib.WithString("channel_id",
			mcplib.Description("Slack channel ID, e.g. C01234567."),
			mcplib.Required(),
		),
		mcplib.WithString("thread_ts",
			mcplib.Description(`Timestamp of the thread parent message, e.g. "1699564800.123456". Pass it exactly as given.`),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleReadThreadMessages}
}

// threadResult is the structured content of read_thread_messages.
type threadResult struct {
	ChannelID   string `json:"channel_id"`
	ThreadTS    string `json:"thread_ts"`
	ThreadFound bool   `json:"thread_found"`
	ReplyCount  int    `json:"reply_count"`
	Permalink   string `json:"permalink,omitempty"`
}

func (s *Server) handleReadThreadMessages(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opReadThread
	channelID, err := requiredString(op, req, "channel_id")
	if err != nil {
		return resultErr(err), nil
	}
	threadTS, err := timestampArg(op, req, "thread_ts")
	if err != nil {
		return resultErr(err), nil
	}

	md, users := s.renderer(ctx)
	notFound := func() *mcplib.CallToolResult {
		var sb strings.Builder
		_ = md.ThreadNotFound(&sb, channelID, threadTS)
		return resultStructured(sb.String(), threadResult{ChannelID: channelID, ThreadTS: threadTS})
	}

	msgs, err := s.replies(ctx, channelID, threadTS)
	if err != nil {
		switch code := codeOf(err); code {
		case "thread_not_found", "message_not_found":
			return notFound(), nil
		}
		return resultErr(apierr.ChannelAccess(channelID, err)), nil
	}
	if len(msgs) == 0 || msgs[0].Timestamp != threadTS {
		return notFound(), nil
	}

	users.Prefetch(ctx, format.Authors(msgs)...)
	th := format.Thread{ChannelID: channelID, ThreadTS: threadTS, Messages: msgs}
	var sb strings.Builder
	if err := md.Thread(&sb, th); err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	return resultStructured(sb.String(), threadResult{
		ChannelID:   channelID,
		ThreadTS:    threadTS,
		ThreadFound: true,
		ReplyCount:  th.Replies(),
		Permalink:   slackts.Permalink(s.base, channelID, threadTS),
	}), nil
}

// replies fetches all messages of the thread, following the cursor.  The
// returned error is classified.
func (s *Server) replies(ctx context.Context, channelID, threadTS string) ([]slack.Message, error) {
	const op = opReadThread
	var (
		all    []slack.Message
		cursor string
		seen   = make(map[string]bool)
	)
	for {
		msgs, hasMore, next, err := s.cl.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Limit:     s.pages.Replies,
		})
		if err != nil {
			return nil, apierr.Classify(op, err)
		}
		// every page starts with the thread parent.
		if len(all) > 0 && len(msgs) > 0 && msgs[0].Timestamp == threadTS {
			msgs = msgs[1:]
		}
		all = append(all, msgs...)
		if !hasMore || next == "" {
			return all, nil
		}
		if seen[next] {
			return nil, cursorLoop(op, next)
		}
		seen[next] = true
		cursor = next
	}
}

// codeOf returns the Slack error code of the classified error.
func codeOf(err error) string {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ─── get_channel_info ─────────────────────────────────────────────────────────

func (s *Server) toolGetChannelInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opChannelInfo,
		mcplib.WithDescription("Get Slack channel information: name, ID, creation date, member count, privacy and archive flags, topic and purpose. Absent fields are shown as \"(not set)\"."),
		mcplib.WithString("channel_id",
			mcplib.Description("Slack channel ID, e.g. C01234567."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetChannelInfo}
}

func (s *Server) handleGetChannelInfo(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opChannelInfo
	channelID, err := requiredString(op, req, "channel_id")
	if err != nil {
		return resultErr(err), nil
	}
	ch, err := s.cl.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID:         channelID,
		IncludeNumMembers: true,
	})
	if err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	md, users := s.renderer(ctx)
	if ch.IsIM {
		users.Prefetch(ctx, ch.User)
	}
	rec := md.ChannelRecord(ch)
	return resultStructured(rec.String(), rec.Map()), nil
}

// ─── get_user_info ────────────────────────────────────────────────────────────

func (s *Server) toolGetUserInfo() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opUserInfo,
		mcplib.WithDescription("Get Slack user information: real and display names, username, email, title, status, timezone, and admin, owner, bot and deleted flags. Absent fields are shown as \"(not set)\"."),
		mcplib.WithString("user_id",
			mcplib.Description("Slack user ID, e.g. U01234567."),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetUserInfo}
}

func (s *Server) handleGetUserInfo(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opUserInfo
	userID, err := requiredString(op, req, "user_id")
	if err != nil {
		return resultErr(err), nil
	}
	u, err := s.cl.GetUserInfoContext(ctx, userID)
	if err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	md, _ := s.renderer(ctx)
	rec := md.UserRecord(u)
	return resultStructured(rec.String(), rec.Map()), nil
}

// ─── list_my_channels ─────────────────────────────────────────────────────────

func (s *Server) toolListMyChannels() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opListMine,
		mcplib.WithDescription(`List the channels you are a member of, excluding archived ones, in the
order Slack returns them. All pages are fetched.`),
		mcplib.WithString("types",
			mcplib.Description("Comma separated channel types: public_channel, private_channel, mpim, im. Default: public_channel,private_channel."),
			mcplib.DefaultString(defChannelTypes),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleListMyChannels}
}

// channelItem is an entry of the list_my_channels structured content.
type channelItem struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type"`
}

type channelsResult struct {
	Types    []string      `json:"types"`
	Count    int           `json:"count"`
	Channels []channelItem `json:"channels"`
}

func (s *Server) handleListMyChannels(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opListMine
	typesArg, err := optionalString(op, req, "types", defChannelTypes)
	if err != nil {
		return resultErr(err), nil
	}
	types, err := parseChannelTypes(op, typesArg)
	if err != nil {
		return resultErr(err), nil
	}

	var (
		all    []slack.Channel
		cursor string
		seen   = make(map[string]bool)
	)
	for {
		chans, next, err := s.cl.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Cursor:          cursor,
			Types:           types,
			Limit:           s.pages.Channels,
			ExcludeArchived: true,
		})
		if err != nil {
			return resultErr(apierr.Classify(op, err)), nil
		}
		for i := range chans {
			if isMine(&chans[i]) {
				all = append(all, chans[i])
			}
		}
		if next == "" {
			break
		}
		if seen[next] {
			return resultErr(cursorLoop(op, next)), nil
		}
		seen[next] = true
		cursor = next
	}

	md, users := s.renderer(ctx)
	var peers []string
	for i := range all {
		if all[i].IsIM {
			peers = append(peers, all[i].User)
		}
	}
	users.Prefetch(ctx, peers...)

	var sb strings.Builder
	if err := md.Channels(&sb, all); err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	items := make([]channelItem, 0, len(all))
	for i := range all {
		items = append(items, channelItem{ID: all[i].ID, Name: all[i].Name, Type: channelType(&all[i])})
	}
	return resultStructured(sb.String(), channelsResult{Types: types, Count: len(all), Channels: items}), nil
}

// isMine reports whether the user is a member of the conversation.
// conversations.list returns only the user's own IMs and MPIMs, and does not
// set is_member on them.
func isMine(ch *slack.Channel) bool {
	return ch.IsMember || ch.IsIM || ch.IsMpIM
}

func channelType(ch *slack.Channel) string {
	switch {
	case ch.IsIM:
		return typeIM
	case ch.IsMpIM:
		return typeMPIM
	case ch.IsPrivate:
		return typePrivate
	}
	return typePublic
}

// ─── search_my_conversations ──────────────────────────────────────────────────

func (s *Server) toolSearchMyConversations() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opSearchMine,
		mcplib.WithDescription(`Search messages matching the query that mention you. Results are in Slack's
relevance order and include the channel, author, time, permalink and text.
Requires a user token.`),
		mcplib.WithString("query",
			mcplib.Description("Search query, Slack search modifiers such as in:#channel or from:@user are supported."),
			mcplib.Required(),
		),
		mcplib.WithNumber("count",
			mcplib.Description("Number of results to return, 1 to 100. Default: 20."),
			mcplib.DefaultNumber(defSearchCount),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleSearchMyConversations}
}

type searchResult struct {
	Query    string `json:"query"`
	Total    int    `json:"total"`
	Returned int    `json:"returned"`
}

func (s *Server) handleSearchMyConversations(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opSearchMine
	query, err := requiredString(op, req, "query")
	if err != nil {
		return resultErr(err), nil
	}
	count, err := clampedInt(op, req, "count", defSearchCount, 1, maxSearchCount)
	if err != nil {
		return resultErr(err), nil
	}

	self, err := s.selfID(ctx)
	if err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}

	params := slack.NewSearchParameters()
	params.Count = count
	res, err := s.cl.SearchMessagesContext(ctx, query+" <@"+self+">", params)
	if err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	if res == nil {
		res = &slack.SearchMessages{}
	}

	md, users := s.renderer(ctx)
	ids := format.SearchAuthors(res.Matches)
	for _, m := range res.Matches {
		ids = append(ids, resolve.Mentions(m.Text)...)
	}
	users.Prefetch(ctx, ids...)

	var sb strings.Builder
	if err := md.Search(&sb, query, res); err != nil {
		return resultErr(apierr.Classify(op, err)), nil
	}
	return resultStructured(sb.String(), searchResult{Query: query, Total: res.Total, Returned: len(res.Matches)}), nil
}

// selfID returns the ID of the authenticated user.
func (s *Server) selfID(ctx context.Context) (string, error) {
	if s.self.UserID != "" {
		return s.self.UserID, nil
	}
	wi, err := s.cl.AuthTestContext(ctx)
	if err != nil {
		return "", err
	}
	return wi.UserID, nil
}

// ─── get_message_permalink ────────────────────────────────────────────────────

func (s *Server) toolGetMessagePermalink() mcpsrv.ServerTool {
	tool := mcplib.NewTool(opPermalink,
		mcplib.WithDescription("Get a permanent link to a message."),
		mcplib.WithString("channel_id",
			mcplib.Description("Slack channel ID, e.g. C01234567."),
			mcplib.Required(),
		),
		mcplib.WithString("message_ts",
			mcplib.Description(`Message timestamp, e.g. "1699564800.123456". Pass it exactly as given.`),
			mcplib.Required(),
		),
		mcplib.WithReadOnlyHintAnnotation(true),
	)
	return mcpsrv.ServerTool{Tool: tool, Handler: s.handleGetMessagePermalink}
}

type permalinkResult struct {
	Permalink   string `json:"permalink"`
	Constructed bool   `json:"constructed"`
}

func (s *Server) handleGetMessagePermalink(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	const op = opPermalink
	channelID, err := requiredString(op, req, "channel_id")
	if err != nil {
		return resultErr(err), nil
	}
	ts, err := timestampArg(op, req, "message_ts")
	if err != nil {
		return resultErr(err), nil
	}

	md, _ := s.renderer(ctx)
	result := func(link string, constructed bool) *mcplib.CallToolResult {
		var sb strings.Builder
		_ = md.Permalink(&sb, link)
		return resultStructured(sb.String(), permalinkResult{Permalink: link, Constructed: constructed})
	}

	if s.permalinkAPI {
		link, err := s.cl.GetPermalinkContext(ctx, &slack.PermalinkParameters{Channel: channelID, Ts: ts})
		if err == nil {
			return result(link, false), nil
		}
		cerr := apierr.Classify(op, err)
		if apierr.KindOf(cerr) != apierr.KindUpstream || ctx.Err() != nil {
			return resultErr(cerr), nil
		}
		s.log(ctx).WarnContext(ctx, "chat.getPermalink failed, constructing the link", "channel_id", channelID, "ts", ts, "error", err)
	}
	return result(slackts.Permalink(s.base, channelID, ts), true), nil
}
