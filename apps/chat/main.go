package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/maktab/client"
)

func main() {
	defaultAPI := os.Getenv("MAKTAB_API")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:3001"
	}
	apiURL := flag.String("api", defaultAPI, "Base URL of the Maktab API.")
	sessionPath := flag.String("session", "", "Session file (defaults to the user config dir).")
	flag.Parse()

	if *sessionPath == "" {
		path, err := client.DefaultSessionPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		*sessionPath = path
	}
	sess, err := client.OpenSession(*sessionPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cons, restore, err := newConsole()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	err = newApp(client.New(*apiURL), sess, cons).run(ctx)
	restore()
	if cerr := sess.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type stdio struct {
	io.Reader
	io.Writer
}

// newConsole gives line editing and history on a terminal, plain lines otherwise.
func newConsole() (console, func(), error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return newLineConsole(os.Stdin, os.Stdout), func() {}, nil
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, nil, err
	}
	t := term.NewTerminal(stdio{os.Stdin, os.Stdout}, "> ")
	if width, height, err := term.GetSize(fd); err == nil {
		_ = t.SetSize(width, height)
	}
	return termConsole{t}, func() { _ = term.Restore(fd, state) }, nil
}
