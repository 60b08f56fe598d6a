package tui

import "strings"

// Command is a parsed ':' command line.
type Command struct {
	Name string
	Args string
}

type commandSpec struct {
	name    string
	args    string
	aliases []string
}

var commands = []commandSpec{
	{name: "join", args: "<chat-id>", aliases: []string{"j"}},
	{name: "leave", aliases: []string{"part"}},
	{name: "name", args: "<display name>", aliases: []string{"nick"}},
	{name: "new", args: "<activity name>"},
	{name: "help", aliases: []string{"h", "?"}},
	{name: "quit", aliases: []string{"q", "exit"}},
}

// ParseCommand parses input without the leading ':'. Aliases resolve to
// their command name.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	for _, c := range commands {
		if name == c.name {
			break
		}
		for _, alias := range c.aliases {
			if name == alias {
				name = c.name
			}
		}
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}

// usage returns the synopsis of a known command, or "".
func usage(name string) string {
	for _, c := range commands {
		if c.name == name {
			return strings.TrimSpace(c.name + " " + c.args)
		}
	}
	return ""
}

// commandHint lists every command for the prompt placeholder.
func commandHint() string {
	parts := make([]string, 0, len(commands))
	for _, c := range commands {
		parts = append(parts, usage(c.name))
	}
	return strings.Join(parts, " | ")
}
