package cmds

import (
	"fmt"
	"io"
	"os"
	"sort"
)

func (p *Executor) PrintUsage() {
	fmt.Fprintf(os.Stdout, "commands:\n")
	printCommands(os.Stdout, p.commands, "  ")
}

func printCommands(w io.Writer, commands map[string]*Command, indent string) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	printed := make(map[*Command]bool)
	for _, name := range names {
		command := commands[name]
		if printed[command] {
			continue
		}
		printed[command] = true
		if command.Description != "" {
			fmt.Fprintf(w, "%s%s\t%s\n", indent, name, command.Description)
		} else {
			fmt.Fprintf(w, "%s%s\n", indent, name)
		}
		if len(command.Subs) > 0 {
			printCommands(w, command.Subs, indent+"  ")
		}
	}
}
