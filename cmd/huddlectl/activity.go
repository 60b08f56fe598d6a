package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/api"
	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/realtime"
	"github.com/matheus3301/huddle/internal/session"
	"github.com/matheus3301/huddle/internal/store"
)

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Create and list activities",
	}
	cmd.AddCommand(newActivityCreateCmd(), newActivityListCmd())
	return cmd
}

func newActivityCreateCmd() *cobra.Command {
	var a store.Activity
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an activity and its chat, organized by the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := session.ResolveUser(opts.User)
			if err != nil {
				return err
			}
			a.Name = args[0]
			a.OrganizerID = userID
			if cmd.Flags().Changed("lat") {
				a.Latitude = &lat
			}
			if cmd.Flags().Changed("lng") {
				a.Longitude = &lng
			}
			return withClient(func(ctx context.Context, c *client.Client) error {
				created, err := c.CreateActivity(ctx, a)
				if err != nil {
					return err
				}
				if opts.JSON {
					outputJSON(created)
					return nil
				}
				fmt.Printf("Activity: %s\n", created.ID)
				fmt.Printf("Chat:     %s\n", created.ChatID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&a.Description, "description", "d", "", "Description")
	cmd.Flags().StringVarP(&a.ActivityType, "type", "t", "", "Activity type")
	cmd.Flags().StringVar(&a.PriceRange, "price", "", "Price range")
	cmd.Flags().StringVar(&a.TimeSlot, "time", "", "Time slot")
	cmd.Flags().StringVarP(&a.Location, "location", "l", "", "Location")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	return cmd
}

func newActivityListCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return watchActivities()
			}
			return withClient(listActivities)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-list whenever an activity is created")
	return cmd
}

func listActivities(ctx context.Context, c *client.Client) error {
	acts, err := c.ListActivities(ctx)
	if err != nil {
		return err
	}
	if opts.JSON {
		outputJSON(acts)
		return nil
	}
	if len(acts) == 0 {
		fmt.Println("No activities.")
		return nil
	}
	for _, a := range acts {
		where := a.Location
		if a.Latitude != nil && a.Longitude != nil {
			where = fmt.Sprintf("%s (%.5f, %.5f)", where, *a.Latitude, *a.Longitude)
		}
		fmt.Printf("%s  %-30s %s\n", a.ChatID, a.Name, where)
	}
	return nil
}

// watchActivities lists once, then again after every new activity, until
// interrupted.
func watchActivities() error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relist := func() error {
		lctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		return listActivities(lctx, c)
	}
	if err := relist(); err != nil {
		return err
	}
	filter := store.ChangeFilter{Table: store.TableEvents}
	err = c.Watch(ctx, filter, func(env *api.ChangeEnvelope) error {
		if !opts.JSON {
			fmt.Println()
		}
		return relist()
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, realtime.ErrStreamClosed) {
		return nil
	}
	return err
}
