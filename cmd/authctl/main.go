// authctl is a terminal client for the auth API, mostly useful for
// poking at a running server without the web front end.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"skillquest/api/pkg/session"
)

func main() {
	serverURL := flag.String("server", "http://localhost:5000", "auth API base URL")
	cachePath := flag.String("cache", defaultCachePath(), "session cache file")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	manager, err := session.NewManager(*serverURL, *cachePath)
	if err != nil {
		fail(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch flag.Arg(0) {
	case "signup":
		runSignup(ctx, manager)
	case "login":
		runLogin(ctx, manager)
	case "passwd":
		runPasswd(ctx, manager)
	case "whoami":
		runWhoami(ctx, manager)
	case "logout":
		if err := manager.Logout(); err != nil {
			fail(err)
		}
		fmt.Println("Logged out.")
	default:
		usage()
		os.Exit(2)
	}
}

func runSignup(ctx context.Context, manager *session.Manager) {
	reader := bufio.NewReader(os.Stdin)
	name := promptLine(reader, "Name")
	email := promptLine(reader, "Email")
	password := promptPassword("Password")

	user, err := manager.Signup(ctx, name, email, password)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Signed up as %s <%s>\n", user.Name, user.Email)
}

func runLogin(ctx context.Context, manager *session.Manager) {
	reader := bufio.NewReader(os.Stdin)
	email := promptLine(reader, "Email")
	password := promptPassword("Password")

	user, err := manager.Login(ctx, email, password)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Logged in as %s <%s>\n", user.Name, user.Email)
}

func runPasswd(ctx context.Context, manager *session.Manager) {
	current := promptPassword("Current password")
	updated := promptPassword("New password")

	if err := manager.UpdatePassword(ctx, current, updated); err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			fail(errors.New("log in first"))
		}
		fail(err)
	}
	fmt.Println("Password updated.")
}

func runWhoami(ctx context.Context, manager *session.Manager) {
	if manager.State() == session.StateAnonymous {
		fmt.Println("Not logged in.")
		return
	}

	// Cached identity is provisional until the server confirms it.
	user, err := manager.Verify(ctx)
	if err != nil {
		fail(err)
	}
	fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, manager.State())
}

func promptLine(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, err := reader.ReadString('\n')
	if err != nil {
		fail(err)
	}
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Printf("%s: ", label)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		fail(err)
	}
	return string(password)
}

func defaultCachePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".skillquest-session.json"
	}
	return filepath.Join(dir, "skillquest", "session.json")
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authctl [-server URL] [-cache FILE] signup|login|passwd|whoami|logout")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
