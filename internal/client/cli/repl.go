package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	flushNotifications()

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Profile(ctx context.Context) error

	Courses(ctx context.Context, args []string) error
	Course(ctx context.Context, args []string) error
	Categories(ctx context.Context) error

	Cart(ctx context.Context) error
	Add(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Clear(ctx context.Context) error
	Checkout(ctx context.Context) error
	Bought(ctx context.Context) error

	MyCourses(ctx context.Context) error
	NewCourse(ctx context.Context) error
	EditCourse(ctx context.Context, args []string) error
	DeleteCourse(ctx context.Context, args []string) error
}

const (
	guestHelp = "Available commands: courses [search] [-category id] [-min price] [-max price], course <id>, " +
		"categories, register, login, whoami, exit"
	userHelp = "Available commands: courses [search] [-category id] [-min price] [-max price], course <id>, " +
		"categories, cart, add <course id>, remove <item id>, clear, checkout, bought, profile, " +
		"mycourses, newcourse, editcourse <id>, delcourse <id>, whoami, logout, exit"
)

// runREPL starts a read–eval–print loop for the course store CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF or when the user types "exit" or "quit".
//
// Command handlers report their own failures through notifications; the
// loop only prints usage hints. Queued notifications are printed after
// every command, before the next prompt.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("courses %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
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
			if a.isLoggedIn() {
				printlnFn(userHelp)
			} else {
				printlnFn(guestHelp)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "whoami":
			cmdErr = a.WhoAmI(ctx)
		case "profile":
			cmdErr = a.Profile(ctx)

		case "courses", "ls":
			cmdErr = a.Courses(ctx, args)
		case "course":
			cmdErr = a.Course(ctx, args)
		case "categories":
			cmdErr = a.Categories(ctx)

		case "cart":
			cmdErr = a.Cart(ctx)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "remove", "rm":
			cmdErr = a.Remove(ctx, args)
		case "clear":
			cmdErr = a.Clear(ctx)
		case "checkout":
			cmdErr = a.Checkout(ctx)
		case "bought":
			cmdErr = a.Bought(ctx)

		case "mycourses":
			cmdErr = a.MyCourses(ctx)
		case "newcourse":
			cmdErr = a.NewCourse(ctx)
		case "editcourse":
			cmdErr = a.EditCourse(ctx, args)
		case "delcourse":
			cmdErr = a.DeleteCourse(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if errors.Is(cmdErr, errUsage) {
			printlnFn(cmdErr.Error())
		}
		a.flushNotifications()

		if err != nil {
			return
		}
	}
}
