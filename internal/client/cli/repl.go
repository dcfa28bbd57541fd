package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. App satisfies it; tests
// use a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Biometric(ctx context.Context) error
	Select(ctx context.Context, code string) error
	Cancel(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Vault(ctx context.Context, on bool) error
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit".
//
//	Not logged in:  help, login, biometric, select <código>, cancel, vault off, status, exit
//	Logged in:      help, status, vault on|off, logout, exit
//
// Handler errors are reported by the handlers themselves; the loop keeps going.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("promoconsig%s> ", prefixSpace(statusFn())))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: status, vault on|off, logout, exit")
			} else {
				printlnFn("Available commands: login, biometric, select <code>, cancel, status, vault off, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "biometric", "bio":
			_ = a.Biometric(ctx)

		case "select":
			if len(args) != 1 {
				printlnFn("Usage: select <code>")
				continue
			}
			_ = a.Select(ctx, args[0])

		case "cancel":
			_ = a.Cancel(ctx)

		case "status":
			_ = a.Status(ctx)

		case "vault":
			if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
				printlnFn("Usage: vault on|off")
				continue
			}
			_ = a.Vault(ctx, args[0] == "on")

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}

func prefixSpace(s string) string {
	if s == "" {
		return ""
	}
	return " " + s
}
