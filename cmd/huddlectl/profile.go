package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/store"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage display names",
	}
	cmd.AddCommand(newProfileSetCmd(), newProfileGetCmd())
	return cmd
}

func newProfileSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <name>...",
		Short: "Set the acting user's display name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := session.ResolveUser(opts.User)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			return withClient(func(ctx context.Context, c *client.Client) error {
				if err := c.SetProfile(ctx, store.Profile{UserID: userID, Name: name}); err != nil {
					return err
				}
				fmt.Printf("%s is now %q\n", userID, name)
				return nil
			})
		},
	}
}

func newProfileGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user-id>...",
		Short: "Show display names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				profiles, err := c.Profiles(ctx, args)
				if err != nil {
					return err
				}
				if opts.JSON {
					outputJSON(profiles)
					return nil
				}
				for _, p := range profiles {
					fmt.Printf("%-36s %s\n", p.UserID, p.Name)
				}
				return nil
			})
		},
	}
}
