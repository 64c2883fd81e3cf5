package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/propscan/internal/client/transport"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Balance(ctx context.Context) error
	Refresh(ctx context.Context) error
	Scan(ctx context.Context, url string) error
	Compare(ctx context.Context, ids []string) error
	Ask(ctx context.Context, propertyID, question string) error
	History(ctx context.Context) error
	Stats(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, stats, exit"
	helpLoggedIn  = "Available commands: balance, refresh, scan <url>, compare <id> <id>..., ask <id> <question>, history, stats, logout, exit"
)

// runREPL starts a simple read-eval-print loop.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. A command that fails prints the user-facing
// message of its error and the loop continues. The loop exits on EOF or
// when the user types "exit" or "quit".
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account
//	  - login          authenticate
//	  - stats          request and balance counters
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - balance        show the cached scan balance
//	  - refresh        fetch the balance from the server
//	  - scan <url>     scan a listing (1 scan)
//	  - compare <id>.. compare scanned listings (1 scan)
//	  - ask <id> <q>   ask about a listing (half a scan)
//	  - history        list scanned listings
//	  - logout         log out
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "propscan %s> ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "balance":
			cmdErr = a.Balance(ctx)

		case "refresh":
			cmdErr = a.Refresh(ctx)

		case "scan":
			if len(args) != 1 {
				fmt.Fprintln(w, "Usage: scan <url>")
				continue
			}
			cmdErr = a.Scan(ctx, args[0])

		case "compare":
			if len(args) < 2 {
				fmt.Fprintln(w, "Usage: compare <id> <id>...")
				continue
			}
			cmdErr = a.Compare(ctx, args)

		case "ask":
			if len(args) < 2 {
				fmt.Fprintln(w, "Usage: ask <id> <question>")
				continue
			}
			cmdErr = a.Ask(ctx, args[0], strings.Join(args[1:], " "))

		case "history":
			cmdErr = a.History(ctx)

		case "stats":
			cmdErr = a.Stats(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, describe(cmdErr))
		}
	}
}

// describe is the only way errors reach the screen.
func describe(err error) string {
	return transport.UserMessage(err)
}
