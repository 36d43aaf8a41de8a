package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Use(ctx context.Context, tenant string) error
	Sessions(ctx context.Context) error
	Whoami(ctx context.Context) error
	Refresh(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Books(ctx context.Context) error
	AddBook(ctx context.Context) error
	DeleteBook(ctx context.Context, id string) error
	Logout(ctx context.Context) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF,
// "exit" or "quit".
//
//	Always:
//	  - help              show available commands
//	  - register          create a tenant
//	  - login             authenticate in the current tenant
//	  - use <tenant>      switch tenant
//	  - sessions          list saved sessions
//	  - exit | quit       leave the program
//
//	Logged in:
//	  - whoami            show the current user and role
//	  - books | l         list books
//	  - addbook           add a book
//	  - delbook <id>      delete a book
//	  - passwd            change password
//	  - refresh           rotate the token pair
//	  - logout            revoke the session
//
// Handlers report their own errors, so the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("shelf (%s)> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: whoami, (l)books, addbook, delbook <id>, passwd, refresh, use <tenant>, sessions, logout, exit")
			} else {
				printlnFn("Available commands: register, login, use <tenant>, sessions, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "use":
			if len(args) != 1 {
				printlnFn("Usage: use <tenant>")
				continue
			}
			_ = a.Use(ctx, args[0])

		case "sessions":
			_ = a.Sessions(ctx)

		case "whoami":
			_ = a.Whoami(ctx)

		case "l", "books":
			_ = a.Books(ctx)

		case "addbook":
			_ = a.AddBook(ctx)

		case "delbook":
			if len(args) != 1 {
				printlnFn("Usage: delbook <id>")
				continue
			}
			_ = a.DeleteBook(ctx, args[0])

		case "passwd":
			_ = a.ChangePassword(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
