package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jpfa/chat-tui/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jpfa: %v\n", err)
		if strings.Contains(err.Error(), "unknown command") {
			fmt.Fprintln(os.Stderr, "\nRun 'jpfa --help' for usage.")
		}
		os.Exit(1)
	}
}
