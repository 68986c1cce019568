package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

type console interface {
	ReadLine() (string, error)
	Printf(format string, args ...interface{})
}

type termConsole struct {
	t *term.Terminal
}

func (c termConsole) ReadLine() (string, error) {
	return c.t.ReadLine()
}

// Printf goes through the terminal so output is CRLF translated in raw mode.
func (c termConsole) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.t, format, args...)
}

type lineConsole struct {
	in  *bufio.Scanner
	out io.Writer
}

func newLineConsole(r io.Reader, w io.Writer) *lineConsole {
	in := bufio.NewScanner(r)
	in.Buffer(make([]byte, 64*1024), 1024*1024)
	return &lineConsole{in: in, out: w}
}

func (c *lineConsole) ReadLine() (string, error) {
	fmt.Fprint(c.out, "> ")
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimRight(c.in.Text(), "\r"), nil
}

func (c *lineConsole) Printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
