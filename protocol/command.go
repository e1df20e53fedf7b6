package protocol

import "strings"

// Command is a single MPD request line: a command name followed by
// zero or more arguments. Arguments are quoted on the wire when needed.
type Command struct {
	Name string
	Args []string
}

// NewCommand builds a command with the given name and arguments
func NewCommand(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// String serializes the command to its wire form (without the trailing
// newline). Arguments containing spaces, quotes or backslashes are
// wrapped in double quotes with backslash escaping.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}

	var sb strings.Builder
	sb.WriteString(c.Name)
	for _, arg := range c.Args {
		sb.WriteByte(' ')
		sb.WriteString(quoteArg(arg))
	}
	return sb.String()
}

func needsQuoting(arg string) bool {
	if arg == "" {
		return true
	}
	return strings.ContainsAny(arg, " \t\"'\\")
}

func quoteArg(arg string) string {
	if !needsQuoting(arg) {
		return arg
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(arg); i++ {
		switch arg[i] {
		case '"', '\\':
			sb.WriteByte('\\')
		}
		sb.WriteByte(arg[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
