package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/trezcool/maktab/storage/database"
)

var (
	gooseRunFunc = database.RunGoose // mockable
	confirmFunc  = confirm           // mockable

	errAborted = errors.New("aborted")

	// goose commands that roll back applied migrations
	destructive = map[string]bool{"down": true, "down-to": true, "redo": true, "reset": true}
)

// confirm asks on interactive terminals only; scripts are never blocked.
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	fmt.Printf("%s [y/N]: ", question)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (cli *commandLine) migrate(args []string) error {
	if destructive[args[0]] && !confirmFunc(fmt.Sprintf("goose %s may drop catalog data. Continue?", args[0])) {
		return errAborted
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
