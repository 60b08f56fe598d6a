package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/outbox"
	"github.com/matheus3301/huddle/internal/session"
	intsync "github.com/matheus3301/huddle/internal/sync"
)

type chatRow struct {
	ChatID    string `json:"chat_id"`
	Name      string `json:"name"`
	Preview   string `json:"preview"`
	Sender    string `json:"sender,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
}

func newChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List the chats of the acting user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := session.ResolveUser(opts.User)
			if err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				items, err := intsync.NewLoader(c, nil).LoadChatList(ctx, userID)
				if err != nil {
					return err
				}
				var senders []string
				for _, it := range items {
					if it.HasPreview {
						senders = append(senders, it.PreviewSenderID)
					}
				}
				names, _ := intsync.NewResolver(c, nil).Resolve(ctx, senders)

				rows := make([]chatRow, 0, len(items))
				for _, it := range items {
					row := chatRow{ChatID: it.ChatID, Name: it.EventName, Preview: it.Preview}
					if it.HasPreview {
						row.Sender = senderName(names, it.PreviewSenderID)
						row.UpdatedAt = it.PreviewAt
					}
					rows = append(rows, row)
				}
				if opts.JSON {
					outputJSON(rows)
					return nil
				}
				if len(rows) == 0 {
					fmt.Println("No chats.")
					return nil
				}
				for _, r := range rows {
					fmt.Printf("%s  %s\n", r.ChatID, r.Name)
					if r.Sender != "" {
						fmt.Printf("    [%s] %s: %s\n", formatTime(r.UpdatedAt), r.Sender, r.Preview)
					} else {
						fmt.Printf("    %s\n", r.Preview)
					}
				}
				return nil
			})
		},
	}
}

type messageRow struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
}

type roomOutput struct {
	ChatID       string       `json:"chat_id"`
	Name         string       `json:"name"`
	Participants int          `json:"participants"`
	Messages     []messageRow `json:"messages"`
}

func newMessagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "messages <chat-id>",
		Short: "Print a chat's messages in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				snap, err := intsync.NewLoader(c, nil).LoadChatRoom(ctx, args[0])
				if err != nil && !snap.MessagesLoaded {
					return err
				}
				tl := intsync.NewTimeline(snap.ChatID)
				tl.InsertAll(snap.Messages)
				names, _ := intsync.NewResolver(c, nil).Resolve(ctx, tl.SenderIDs())

				out := roomOutput{ChatID: snap.ChatID, Name: snap.Name, Participants: snap.Participants}
				for _, m := range tl.Messages() {
					out.Messages = append(out.Messages, messageRow{
						ID:        m.ID,
						Sender:    senderName(names, m.UserID),
						UserID:    m.UserID,
						Content:   m.Content,
						CreatedAt: m.CreatedAt,
					})
				}
				if opts.JSON {
					outputJSON(out)
					return nil
				}
				fmt.Printf("%s (%d participants)\n", out.Name, out.Participants)
				fmt.Println(strings.Repeat("-", 40))
				for _, m := range out.Messages {
					fmt.Printf("[%s] %s: %s\n", formatTime(m.CreatedAt), m.Sender, m.Content)
				}
				return nil
			})
		},
	}
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <text>...",
		Short: "Send a message as the acting user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := session.ResolveUser(opts.User)
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			return withClient(func(ctx context.Context, c *client.Client) error {
				return outbox.NewSender(c, nil, nil).Send(ctx, args[0], userID, text)
			})
		},
	}
}

func newJoinCmd() *cobra.Command {
	return membershipCmd("join", "Join a chat as the acting user", (*client.Client).JoinChat, "joined", "already a participant")
}

func newLeaveCmd() *cobra.Command {
	return membershipCmd("leave", "Leave a chat as the acting user", (*client.Client).LeaveChat, "left", "not a participant")
}

func membershipCmd(use, short string, call func(*client.Client, context.Context, string, string) (bool, error), changed, unchanged string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <chat-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := session.ResolveUser(opts.User)
			if err != nil {
				return err
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				ok, err := call(c, ctx, args[0], userID)
				if err != nil {
					return err
				}
				if opts.JSON {
					outputJSON(map[string]bool{"changed": ok})
					return nil
				}
				if ok {
					fmt.Printf("%s %s\n", changed, args[0])
				} else {
					fmt.Printf("%s: %s\n", unchanged, args[0])
				}
				return nil
			})
		},
	}
}

func senderName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return intsync.UnknownUser
}
