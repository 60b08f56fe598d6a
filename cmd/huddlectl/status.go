package main

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/lock"
	"github.com/matheus3301/huddle/internal/session"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *client.Client) error {
				resp, err := c.SessionStatus(ctx)
				if err != nil {
					return err
				}
				if opts.JSON {
					outputJSON(resp)
					return nil
				}
				fmt.Printf("Session:  %s\n", resp.Session)
				fmt.Printf("PID:      %d\n", resp.PID)
				fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
				fmt.Printf("Chats:    %d\n", resp.Stats.Chats)
				fmt.Printf("Messages: %d\n", resp.Stats.Messages)
				fmt.Printf("Profiles: %d\n", resp.Stats.Profiles)
				fmt.Printf("Watchers: %d\n", resp.Watchers)
				return nil
			})
		},
	}
}

type sessionInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List known sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := session.List()
			if err != nil {
				return err
			}
			infos := make([]sessionInfo, 0, len(names))
			for _, name := range names {
				info := sessionInfo{Name: name, Path: session.Dir(name)}
				if h, ok := liveHolder(name); ok {
					info.Running = true
					info.PID = h.PID
				}
				infos = append(infos, info)
			}
			if opts.JSON {
				outputJSON(infos)
				return nil
			}
			if len(infos) == 0 {
				fmt.Println("No sessions found.")
				return nil
			}
			for _, s := range infos {
				state := "stopped"
				if s.Running {
					state = fmt.Sprintf("running, pid %d", s.PID)
				}
				fmt.Printf("%-20s %s (%s)\n", s.Name, s.Path, state)
			}
			return nil
		},
	}
}

// liveHolder returns the recorded lock holder when its process still exists.
// A crashed daemon leaves its lock file behind.
func liveHolder(name string) (lock.Holder, bool) {
	h, err := lock.ReadHolder(session.Dir(name))
	if err != nil || h.PID <= 0 {
		return lock.Holder{}, false
	}
	if err := syscall.Kill(h.PID, 0); err != nil && !errors.Is(err, syscall.EPERM) {
		return lock.Holder{}, false
	}
	return h, true
}
