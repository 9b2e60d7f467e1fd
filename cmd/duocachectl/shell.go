package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/duocache"
)

// runShell starts an interactive REPL over cache, grounded on the teacher's
// cmd/tk interactive editor path: a liner.State reads lines, each line is
// split into a command and its arguments, and dispatched the same way the
// one-shot subcommands in main.go are.
func runShell(cache *duocache.Cache[string, []byte]) int {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	ctx := context.Background()

	for {
		input, err := line.Prompt("duocache> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err.Error() == "EOF" {
				return 0
			}

			fmt.Fprintln(os.Stderr, "duocachectl:", err)
			return 1
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		fields := strings.Fields(input)

		switch fields[0] {
		case "quit", "exit":
			return 0
		case "stat":
			cmdStat(cache)
		case "gc":
			cache.GC()
		case "get":
			if len(fields) == 2 {
				cmdGet(ctx, cache, fields[1:])
			} else {
				fmt.Fprintln(os.Stderr, "usage: get KEY")
			}
		case "store":
			if len(fields) == 3 {
				cmdStore(ctx, cache, fields[1:])
			} else {
				fmt.Fprintln(os.Stderr, "usage: store KEY VALUE")
			}
		case "remove":
			if len(fields) == 2 {
				cmdRemove(ctx, cache, fields[1:])
			} else {
				fmt.Fprintln(os.Stderr, "usage: remove KEY")
			}
		default:
			fmt.Fprintln(os.Stderr, "duocachectl: unknown command:", fields[0])
		}
	}
}
