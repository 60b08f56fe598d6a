package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheus3301/huddle/internal/client"
	"github.com/matheus3301/huddle/internal/session"
)

// globalOpts are the flags shared by every command.
type globalOpts struct {
	Session string
	User    string
	JSON    bool
	Timeout time.Duration
}

var opts globalOpts

var rootCmd = &cobra.Command{
	Use:           "huddlectl",
	Short:         "Control a running huddled session",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&opts.Session, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().StringVar(&opts.User, "user", "", "acting user id (overrides config user_id)")
	rootCmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(
		newStatusCmd(),
		newSessionsCmd(),
		newChatsCmd(),
		newMessagesCmd(),
		newSendCmd(),
		newJoinCmd(),
		newLeaveCmd(),
		newProfileCmd(),
		newActivityCmd(),
		newWatchCmd(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// sessionName resolves and validates the --session flag.
func sessionName() (string, error) {
	name := session.Resolve(opts.Session)
	if err := session.ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// connect dials the daemon of the resolved session.
func connect() (*client.Client, error) {
	name, err := sessionName()
	if err != nil {
		return nil, err
	}
	c, err := client.New(session.SocketPath(name))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	return c, nil
}

// withClient runs fn with a connected client and a request deadline.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	c, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()
	return fn(ctx, c)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func formatTime(unixMs int64) string {
	return time.UnixMilli(unixMs).Format("2006-01-02 15:04")
}
