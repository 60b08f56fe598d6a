package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/api"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/store"
)

func newWatchCmd() *cobra.Command {
	var filter store.ChangeFilter
	var participants, activities bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream row changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Table = store.TableMessages
			switch {
			case participants:
				filter.Table = store.TableParticipants
			case activities:
				filter.Table = store.TableEvents
			}
			c, err := connect()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = c.Watch(ctx, filter, func(env *api.ChangeEnvelope) error {
				if opts.JSON {
					outputJSON(env)
					return nil
				}
				printChange(env)
				return nil
			})
			if errors.Is(err, context.Canceled) || errors.Is(err, realtime.ErrStreamClosed) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&participants, "participants", "p", false, "Watch participant changes instead of messages")
	cmd.Flags().BoolVarP(&activities, "activities", "a", false, "Watch newly created activities instead of messages")
	cmd.MarkFlagsMutuallyExclusive("participants", "activities")
	cmd.Flags().StringVarP(&filter.ChatID, "chat", "c", "", "Only changes of this chat")
	cmd.Flags().StringVarP(&filter.MemberOf, "member-of", "m", "", "Only changes of chats this user participates in")
	cmd.Flags().StringVarP(&filter.UserID, "user-id", "u", "", "Only changes referring to this user")
	return cmd
}

func printChange(env *api.ChangeEnvelope) {
	at := time.UnixMilli(env.OccurredAtUnixMs).Format(time.TimeOnly)
	ch := env.Change
	switch {
	case ch.Message != nil:
		fmt.Printf("%s %-6s %s %s: %s\n", at, ch.Op, ch.Message.ChatID, ch.Message.UserID, ch.Message.Content)
	case ch.Participant != nil:
		fmt.Printf("%s %-6s %s participant %s\n", at, ch.Op, ch.Participant.ChatID, ch.Participant.UserID)
	case ch.Activity != nil:
		fmt.Printf("%s %-6s %s activity %q by %s\n", at, ch.Op, ch.Activity.ChatID, ch.Activity.Name, ch.Activity.OrganizerID)
	default:
		fmt.Printf("%s %-6s %s\n", at, ch.Op, ch.Table)
	}
}
